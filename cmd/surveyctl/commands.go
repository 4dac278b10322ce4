package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/database"
	"github.com/stemsi/pemetaan-keswa/internal/logger"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"github.com/stemsi/pemetaan-keswa/internal/service"
)

var errLintFailed = errors.New("template has lint issues")

func lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <template.yaml>...",
		Short: "Check templates for authoring defects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				req, err := loadTemplate(path)
				if err != nil {
					return err
				}
				issues := definition(req).Lint()
				if len(issues) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", path)
					continue
				}
				failed = true
				for _, is := range issues {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, is)
				}
			}
			if failed {
				return errLintFailed
			}
			return nil
		},
	}
}

func evaluateCmd() *cobra.Command {
	var (
		answersPath string
		validate    bool
		districts   []string
	)
	cmd := &cobra.Command{
		Use:   "evaluate <template.yaml>",
		Short: "Show active sections, progress and errors for an answer set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadTemplate(args[0])
			if err != nil {
				return err
			}
			answers, err := loadAnswers(answersPath)
			if err != nil {
				return err
			}

			tpl := definition(req)
			if len(districts) > 0 {
				tpl = tpl.WithDistricts(parseDistricts(districts))
			}
			out := questionnaire.NewEngine(tpl).Outline(answers, validate)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVarP(&answersPath, "answers", "a", "", "Answer set file (YAML or JSON)")
	cmd.Flags().BoolVar(&validate, "validate", false, "Include validation errors per section")
	cmd.Flags().StringSliceVar(&districts, "district", nil, "Kecamatan choice as id=name (repeatable)")
	return cmd
}

// parseDistricts turns id=name pairs into choices; a bare value is used as
// both id and label.
func parseDistricts(pairs []string) []questionnaire.Choice {
	choices := make([]questionnaire.Choice, 0, len(pairs))
	for _, p := range pairs {
		id, name, ok := strings.Cut(p, "=")
		if !ok {
			name = id
		}
		choices = append(choices, questionnaire.Choice{Value: strings.TrimSpace(id), Label: strings.TrimSpace(name)})
	}
	return choices
}

func importCmd() *cobra.Command {
	var (
		authorEmail string
		publish     bool
	)
	cmd := &cobra.Command{
		Use:   "import <template.yaml>",
		Short: "Store a template as the next DRAFT version of its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadTemplate(args[0])
			if err != nil {
				return err
			}

			cfg := config.Load()
			log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
			ctx := context.Background()

			pool, err := database.NewPostgresPool(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			author, err := repository.NewUserRepository(pool).GetByEmail(ctx, authorEmail)
			if err != nil {
				return fmt.Errorf("find author %q: %w", authorEmail, err)
			}

			var templates *service.TemplateService
			if publish {
				rdb, err := database.NewRedisClient(ctx, cfg, log)
				if err != nil {
					return err
				}
				defer rdb.Close()
				regions := service.NewRegionService(repository.NewDistrictRepository(pool), rdb, cfg, log)
				templates = service.NewTemplateService(repository.NewTemplateRepository(pool), regions, rdb, cfg, log)
			} else {
				templates = service.NewTemplateService(repository.NewTemplateRepository(pool), nil, nil, cfg, log)
			}

			t, issues, err := templates.Create(ctx, author.ID, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s v%d as %s\n", t.Code, t.Version, t.ID)
			for _, is := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "  lint: %s\n", is)
			}

			if publish {
				if err := templates.Publish(ctx, t.ID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "published")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&authorEmail, "author", "", "Email of the user recorded as author")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish after import (requires Redis)")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}
