// Package client submits local files to a toolkit server.
//
// Files go through an Intake, which validates them and hands back a Batch. Only a Batch
// can be attached to a Form, so nothing that failed validation is ever sent. A Submitter
// posts the form to one endpoint and reports the result on a notification board.
package client

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/cppla/pdftoolkit/config"
)

// DefaultServer is used when no server address is configured.
const DefaultServer = "http://localhost:5000"

// Config is built once and passed by value to every client component.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	AlertDuration time.Duration
	Limits        config.Limits
}

// NewConfig validates baseURL and fills defaults for the zero values.
func NewConfig(baseURL string, timeout time.Duration, limits config.Limits) (Config, error) {
	if baseURL == "" {
		baseURL = DefaultServer
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return Config{}, err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return Config{}, errors.New("server address must be an http(s) URL")
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if limits.MaxUploadBytes <= 0 {
		limits = config.DefaultLimits()
	}
	return Config{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Timeout:       timeout,
		AlertDuration: 5 * time.Second,
		Limits:        limits,
	}, nil
}

// PDFTypes is the allow-list for endpoints that take documents.
func (c Config) PDFTypes() []string { return c.Limits.PDFTypes }

// ImageTypes is the allow-list for image conversion.
func (c Config) ImageTypes() []string { return c.Limits.ImageTypes }
