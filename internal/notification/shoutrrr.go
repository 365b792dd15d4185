package notification

import (
	"fmt"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/logger"
)

// Sender delivers one titled message to every configured service.
type Sender interface {
	Send(title, message string) error
}

// ShoutrrrSender sends through a single shoutrrr router built from all
// service URLs.
type ShoutrrrSender struct {
	router *router.ServiceRouter
}

// NewShoutrrrSender validates urls and builds the router. A zero timeout
// keeps the shoutrrr default.
func NewShoutrrrSender(urls []string, timeout time.Duration) (*ShoutrrrSender, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		// service URLs carry tokens
		return nil, errors.New(fmt.Errorf("notification URL: %s", logger.RedactSensitiveData(err.Error()))).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &ShoutrrrSender{router: sender}, nil
}

// Send returns the first error reported by any service.
func (s *ShoutrrrSender) Send(title, message string) error {
	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}
	for _, err := range s.router.Send(message, &params) {
		if err != nil {
			return errors.New(fmt.Errorf("notification send: %s", logger.RedactSensitiveData(err.Error()))).
				Component("notification").
				Category(errors.CategoryNotify).
				Build()
		}
	}
	return nil
}
