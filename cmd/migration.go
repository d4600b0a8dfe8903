package cmd

import (
	"context"

	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrationCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run schema migrations and seed the system templates",
	Run:   runMigration,
}

func init() {
	rootCmd.AddCommand(migrationCmd)
}

// systemTemplates are seeded once; operators can deactivate but not delete
// them.
var systemTemplates = []domain.CreateTemplateRequest{
	{
		Name:        "daily-banner",
		Description: "Banner rotated every day, auto-expired after its window",
		Recurrence:  domain.RecurrenceDaily,
		AutoExpire:  true,
		IsSystem:    true,
	},
	{
		Name:                "evening-video-premiere",
		Description:         "One-off video premiere with a 30 minute reminder",
		NotifySubscribers:   true,
		NotifyBeforeMinutes: 30,
		Priority:            10,
		IsSystem:            true,
	},
	{
		Name:        "weekly-announcement",
		Description: "Announcement republished every week",
		Recurrence:  domain.RecurrenceWeekly,
		IsSystem:    true,
	},
}

func runMigration(_ *cobra.Command, _ []string) {
	ctx := context.Background()

	// Schema migration already ran in initApp; this command additionally
	// seeds the system templates.
	existing, err := templateService.List(ctx, false)
	if err != nil {
		logrus.Fatalf("failed to list templates: %v", err)
	}
	byName := make(map[string]bool, len(existing))
	for _, tpl := range existing {
		byName[tpl.Name] = true
	}

	seeded := 0
	for _, req := range systemTemplates {
		if byName[req.Name] {
			continue
		}
		if _, err := templateService.Create(ctx, req, "system"); err != nil {
			logrus.WithError(err).Errorf("[MIGRATION] Failed to seed template %s", req.Name)
			continue
		}
		seeded++
	}

	logrus.Infof("[MIGRATION] Done. %d system template(s) seeded.", seeded)
}
