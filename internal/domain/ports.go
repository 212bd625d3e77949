package domain

import (
	"context"
	"io"
)

// Token is an access token issued by POST /auth/login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthAPI covers the authentication endpoints.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (Token, error)
	Register(ctx context.Context, email, password string) error
}

// ChatAPI covers the conversation endpoints.
type ChatAPI interface {
	// ChatStream starts a chat turn and returns the streamed response body.
	// The caller must close it.
	ChatStream(ctx context.Context, query, threadID string) (io.ReadCloser, error)
	History(ctx context.Context) ([]ThreadSummary, error)
	Thread(ctx context.Context, threadID string) ([]RawMessage, error)
}

// FileAPI covers document upload and ingestion status endpoints.
type FileAPI interface {
	// Upload sends files as one multipart request. progress receives the
	// percentage of bytes sent and may be nil.
	Upload(ctx context.Context, files []UploadSource, progress func(percent int)) (*UploadResult, error)
	ListFiles(ctx context.Context) ([]FileRecord, error)
	Chunks(ctx context.Context, fileID string) ([]Chunk, error)
	Metadata(ctx context.Context, filename string) (*FileMetadata, error)
	TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
}

// TokenStore persists the access token between runs.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token, username string) error
	ClearToken(ctx context.Context) error
}

// ThreadCache persists the history list and the last opened thread.
type ThreadCache interface {
	SaveThreads(ctx context.Context, threads []ThreadSummary) error
	Threads(ctx context.Context) ([]ThreadSummary, error)
	SaveLastThread(ctx context.Context, id string) error
	LastThread(ctx context.Context) (string, error)
}
