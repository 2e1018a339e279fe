package services

import (
	"context"
	"errors"

	"github.com/sh4869221b/niconeon/internal/models"
)

/*
LEARNING: CONSUMER-DRIVEN INTERFACES (Go Idiom)

AppCore is the CONSUMER of the comment source and of the store, so the
interfaces live HERE, next to the code that calls them.

- The repository package returns concrete *XxxRepositoryImpl types.
- The niconico package returns a concrete *Client.
- Tests hand AppCore in-memory fakes that satisfy the same small interfaces.
*/

// ErrInvalidParams marks caller input that is malformed before any state is touched
var ErrInvalidParams = errors.New("invalid params")

// CommentSource fetches the comment list of a video
type CommentSource interface {
	FetchComments(ctx context.Context, videoID string) ([]models.CommentEvent, error)
}

// NgUserRepository persists blocked users
type NgUserRepository interface {
	AddNgUser(ctx context.Context, userID string) (bool, error)
	RemoveNgUser(ctx context.Context, userID string) (bool, error)
	ListNgUsers(ctx context.Context) ([]string, error)
}

// RegexFilterRepository persists regex filters and assigns their ids
type RegexFilterRepository interface {
	InsertRegexFilter(ctx context.Context, pattern string) (*models.RegexFilter, error)
	RemoveRegexFilter(ctx context.Context, filterID int64) (bool, error)
	ListRegexFilters(ctx context.Context) ([]models.RegexFilter, error)
}

// CommentCacheRepository keeps the last fetched comment list per video
type CommentCacheRepository interface {
	SaveCommentCache(ctx context.Context, videoID string, comments []models.CommentEvent) error
	LoadCommentCache(ctx context.Context, videoID string) ([]models.CommentEvent, bool, error)
}

// VideoMapRepository maps local video files to video ids
type VideoMapRepository interface {
	UpsertVideoMap(ctx context.Context, videoPath, videoID string) error
	VideoIDForPath(ctx context.Context, videoPath string) (string, bool, error)
}

// Store groups the repositories AppCore writes through
type Store struct {
	NgUsers  NgUserRepository
	Filters  RegexFilterRepository
	Cache    CommentCacheRepository
	VideoMap VideoMapRepository
}
