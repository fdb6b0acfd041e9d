package email

import (
	"context"
	"fmt"

	verificationdomain "github.com/jose32011/beatbazaar/internal/verification/domain"
	"go.uber.org/zap"
)

// Notifier delivers verification codes by email. User IDs double as
// mailbox addresses; there is no separate account directory here.
type Notifier struct {
	provider Provider
	log      *zap.Logger
}

func NewNotifier(provider Provider, log *zap.Logger) verificationdomain.Notifier {
	return &Notifier{
		provider: provider,
		log:      log.Named("email.notifier"),
	}
}

func (n *Notifier) SendCode(ctx context.Context, userID string, codeType verificationdomain.CodeType, code string) error {
	subject := "Your verification code"
	if codeType == verificationdomain.CodeTypePasswordReset {
		subject = "Your password reset code"
	}

	body := fmt.Sprintf(
		"<p>Your verification code is <strong>%s</strong>.</p><p>It expires in 15 minutes. If you did not request this, you can ignore this message.</p>",
		code,
	)

	if err := n.provider.Send(ctx, []string{userID}, subject, body); err != nil {
		return err
	}

	n.log.Debug("verification code sent", zap.String("user_id", userID), zap.String("type", string(codeType)))
	return nil
}
