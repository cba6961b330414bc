package validations

import (
	"context"

	domainSend "github.com/ak-softwares/wa-api-sub000/domains/send"
	pkgError "github.com/ak-softwares/wa-api-sub000/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateSendMessage(ctx context.Context, request domainSend.SendMessageRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.UserID, validation.Required),
		validation.Field(&request.WaAccountID, validation.Required),
		validation.Field(&request.To, validation.Required, is.Digit, validation.Length(7, 15)),
		validation.Field(&request.Message, validation.Required, validation.Length(1, 4096)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateSendTemplate(ctx context.Context, request domainSend.SendTemplateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.UserID, validation.Required),
		validation.Field(&request.WaAccountID, validation.Required),
		validation.Field(&request.To, validation.Required, is.Digit, validation.Length(7, 15)),
		validation.Field(&request.TemplateName, validation.Required),
		validation.Field(&request.LanguageCode, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateSendBroadcast(ctx context.Context, request domainSend.SendBroadcastRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.UserID, validation.Required),
		validation.Field(&request.WaAccountID, validation.Required),
		validation.Field(&request.ChatID, validation.Required),
		validation.Field(&request.Message, validation.Required, validation.Length(1, 4096)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
