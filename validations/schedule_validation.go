package validations

import (
	"context"

	pkgError "github.com/contentops/scheduler/pkg/error"
	"github.com/contentops/scheduler/scheduling/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var validContentTypes = []interface{}{
	domain.ContentTypeVideo,
	domain.ContentTypeBanner,
	domain.ContentTypeAnnouncement,
	domain.ContentTypeRecommendation,
}

var validRecurrences = []interface{}{
	domain.Recurrence(""),
	domain.RecurrenceOnce,
	domain.RecurrenceDaily,
	domain.RecurrenceWeekly,
	domain.RecurrenceMonthly,
}

func ValidateCreateSchedule(ctx context.Context, request domain.CreateScheduleRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ContentType, validation.Required, validation.In(validContentTypes...)),
		validation.Field(&request.ContentID, validation.Required),
		validation.Field(&request.ScheduledTime, validation.Required),
		validation.Field(&request.Recurrence, validation.In(validRecurrences...)),
		validation.Field(&request.NotifyBeforeMinutes, validation.Min(0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if request.EndTime != nil && !request.EndTime.After(request.ScheduledTime) {
		return pkgError.ValidationError("end_time must be after scheduled_time")
	}
	if request.MaxRetry != nil && *request.MaxRetry < 0 {
		return pkgError.ValidationError("max_retry cannot be negative")
	}

	return nil
}

func ValidateCreateTemplate(ctx context.Context, request domain.CreateTemplateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&request.Recurrence, validation.In(validRecurrences...)),
		validation.Field(&request.NotifyBeforeMinutes, validation.Min(0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
