package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

// Notifier delivers templated messages. Delivery is best effort.
type Notifier interface {
	Send(ctx context.Context, msg model.Notification) error
}

// ClosingReportRenderer renders the closing summary attached to package closures.
type ClosingReportRenderer interface {
	ClosingReport(doc model.ClosingDocument) ([]byte, error)
}

// SessionExporter renders a purchase's session history as a spreadsheet.
type SessionExporter interface {
	SessionHistory(doc model.ClosingDocument) ([]byte, error)
}

type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// dispatch sends notifications after the primary mutation has committed; failures are
// logged and never returned.
type dispatch struct {
	notifier Notifier
	log      zerolog.Logger
}

func (d dispatch) send(ctx context.Context, msgs ...model.Notification) {
	if d.notifier == nil {
		return
	}
	for _, msg := range msgs {
		if msg.To == "" {
			continue
		}
		if err := d.notifier.Send(ctx, msg); err != nil {
			d.log.Warn().Err(err).Str("template", msg.Template).Str("to", msg.To).Msg("notification failed")
		}
	}
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s not found", ErrNotFound, what)
	}
	return err
}
