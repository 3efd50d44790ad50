package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/quizbank/engine/core"
	"github.com/compozy/quizbank/engine/quiz"
	"github.com/compozy/quizbank/engine/quiz/uc"
	"github.com/compozy/quizbank/engine/store"
	"github.com/compozy/quizbank/pkg/config"
)

// TestCmd groups the commands operating on quiz tests.
func TestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Create, inspect and remove quiz tests",
	}

	cmd.AddCommand(
		testCreateCmd(),
		testGetCmd(),
		testListCmd(),
		testUpdateCmd(),
		testDeleteCmd(),
		testArchiveCmd(),
		testAddQuestionCmd(),
	)

	return cmd
}

func testCreateCmd() *cobra.Command {
	var (
		title       string
		description string
		file        string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a test, optionally with questions read from a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input := &uc.CreateTestInput{}
			if file != "" {
				if err := readJSONInput(cmd, file, input); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("title") {
				input.Title = title
			}
			if cmd.Flags().Changed("description") {
				input.Description = description
			}
			actor, err := actorFromContext(cmd.Context())
			if err != nil {
				return err
			}
			input.ActorID = actor
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				created, err := uc.NewCreateTest(s, input).Execute(ctx)
				if err != nil {
					return err
				}
				return printerFor(cmd).TestDetail(created)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Test title")
	cmd.Flags().StringVar(&description, "description", "", "Test description")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON document with title, description and questions (- for stdin)")
	return cmd
}

func testGetCmd() *cobra.Command {
	var withQuestions bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				if withQuestions {
					detail, err := uc.NewGetTestDetail(s, id).Execute(ctx)
					if err != nil {
						return err
					}
					return printerFor(cmd).TestDetail(detail)
				}
				test, err := uc.NewGetTest(s, id).Execute(ctx)
				if err != nil {
					return err
				}
				return printerFor(cmd).Test(test)
			})
		},
	}
	cmd.Flags().BoolVarP(&withQuestions, "questions", "q", false, "Include questions and answers")
	return cmd
}

func testListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every live test in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				tests, err := uc.NewListTests(s).Execute(ctx)
				if err != nil {
					return err
				}
				return printerFor(cmd).Tests(tests)
			})
		},
	}
}

func testUpdateCmd() *cobra.Command {
	var (
		title       string
		description string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace the title and description of a test",
		Long: `Replace the title and description of a test. Both fields are overwritten:
omitting --description clears the stored description.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseID(args[0])
			if err != nil {
				return err
			}
			actor, err := actorFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				updated, err := uc.NewUpdateTest(s, &uc.UpdateTestInput{
					ID:          id,
					Title:       title,
					Description: description,
					ActorID:     actor,
				}).Execute(ctx)
				if err != nil {
					return err
				}
				return printerFor(cmd).Test(updated)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description, replaces the stored one (omit to clear)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func testDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Permanently delete a test with its questions and answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				if err := uc.NewDeleteTest(s, id).Execute(ctx); err != nil {
					return err
				}
				return printerFor(cmd).Result("deleted", id)
			})
		},
	}
}

func testArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Hide a test from every listing without removing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseID(args[0])
			if err != nil {
				return err
			}
			actor, err := actorFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				input := &uc.ArchiveTestInput{ID: id, ActorID: actor}
				if err := uc.NewArchiveTest(s, input).Execute(ctx); err != nil {
					return err
				}
				return printerFor(cmd).Result("archived", id)
			})
		},
	}
}

func testAddQuestionCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add-question <test-id>",
		Short: "Append a question with its answers read from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testID, err := core.ParseID(args[0])
			if err != nil {
				return err
			}
			question := &quiz.QuestionDTO{}
			if err := readJSONInput(cmd, file, question); err != nil {
				return err
			}
			actor, err := actorFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				added, err := uc.NewAddQuestion(s, &uc.AddQuestionInput{
					TestID:   testID,
					Question: question,
					ActorID:  actor,
				}).Execute(ctx)
				if err != nil {
					return err
				}
				return printerFor(cmd).Question(added)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON question document (- for stdin)")
	return cmd
}

func actorFromContext(ctx context.Context) (*core.ID, error) {
	actor, err := parseActor(config.FromContext(ctx).CLI.Actor)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor: %w", err)
	}
	return actor, nil
}
