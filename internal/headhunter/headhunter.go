// Package headhunter pulls vacancies from the hh.ru public API and turns them
// into jobs that can be scored.
package headhunter

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/logger"
)

const (
	apiURL    = "https://api.hh.ru"
	userAgent = "smartmatch/1.0 (jobs import)"
	// Max value for search per page.
	perPage = "100"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a client. The token is optional for vacancy search.
func New(log *zap.Logger, token string) *Client {
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger.Component(log, "headhunter"),
		UserAgent: userAgent,
	}
}
