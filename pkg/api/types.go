// Package api exposes the quiz server's HTTP surface: engine analysis,
// quiz play, and the crawl job stream.
package api

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version,omitempty"`
	EngineConfigured bool   `json:"engineConfigured"`
}

// UpdateQuizRequest is the POST /updateQuiz body. A missing wasCorrect
// counts as a wrong answer.
type UpdateQuizRequest struct {
	ID         string `json:"id"`
	WasCorrect bool   `json:"wasCorrect"`
}

// CrawlRequest is the POST /addLastMatchesAndSave body. Days falls back
// to the server default; UserID defaults to the authenticated name.
type CrawlRequest struct {
	Days   int    `json:"days,omitempty"`
	UserID string `json:"userId,omitempty"`
}

// CrawlResponse acknowledges an enqueued crawl job.
type CrawlResponse struct {
	JobID      string `json:"jobId"`
	AheadCount int    `json:"aheadCount"`
}

// PlayersResponse is the GET /getPlayers body.
type PlayersResponse struct {
	Players []string `json:"players"`
}
