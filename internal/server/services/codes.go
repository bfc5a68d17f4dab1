package services

import (
	"context"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

// CodeSender delivers one-time verification codes.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogCodeSender writes codes to the server log. The dev backend has no mail
// transport.
type LogCodeSender struct {
	log logging.Logger
}

func NewLogCodeSender(log logging.Logger) *LogCodeSender {
	return &LogCodeSender{log: log}
}

func (s *LogCodeSender) SendCode(ctx context.Context, email, code string) error {
	s.log.Info(ctx, "verification code issued", "email", email, "code", code)
	return nil
}
