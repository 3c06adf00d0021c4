package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/game"
	"trivia-service/internal/logger"
)

// NewPlayCmd runs a hot-seat game in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a hot-seat game in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Log.Level == "" {
				// keep warnings off the game screen unless asked for
				cfg.Log.Level = "error"
			}
			log, err := logger.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer log.Sync()

			questions, closeSource, err := newQuestionSource(cmd.Context(), cfg, source, log)
			if err != nil {
				return err
			}
			defer closeSource()

			return Play(cmd.Context(), os.Stdin, os.Stdout, questions, game.SessionOptions{
				MaxConsecutiveSkips: cfg.Game.MaxConsecutiveSkips,
				Logger:              log.Named("game"),
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", sourceOpenTDB, "question source: opentdb, postgres or memory")
	return cmd
}

// Play collects the players, then alternates turns until "q" or end of input
// and prints the final leaderboard.
func Play(ctx context.Context, in io.Reader, out io.Writer, source game.QuestionSource, opts game.SessionOptions) error {
	reader := bufio.NewReader(in)

	setups, err := readSetup(reader, out)
	if err != nil {
		return err
	}

	session, err := game.NewSession("local", setups, source, opts)
	if err != nil {
		return err
	}
	events, cancel := session.Subscribe()
	defer cancel()

	turn, err := session.StartTurn(ctx)
	printSkips(out, events)
	for err == nil {
		printTurn(out, turn)

		var result domain.AnswerResult
		result, err = answer(ctx, reader, out, session, len(turn.Question.Options))
		if errors.Is(err, errQuit) {
			err = nil
			break
		}
		if result.Player != "" {
			printResult(out, result)
		}
		printSkips(out, events)
		if err != nil {
			break
		}
		turn, err = session.StartTurn(ctx)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(out, "\nStopping: %v\n", err)
	}

	printLeaderboard(out, session.EndGame())
	return nil
}

var errQuit = errors.New("quit")

func answer(ctx context.Context, reader *bufio.Reader, out io.Writer, session *game.Session, optionCount int) (domain.AnswerResult, error) {
	for {
		fmt.Fprintf(out, "Answer (1-%d, q to end the game): ", optionCount)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return domain.AnswerResult{}, err
		}
		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "q") {
			return domain.AnswerResult{}, errQuit
		}

		// Blank or non-numeric input counts as nothing selected.
		selected, _ := strconv.Atoi(line)
		result, err := session.SubmitAnswer(ctx, selected)
		if errors.Is(err, domain.ErrInvalidSelection) {
			fmt.Fprintf(out, "Please choose an option between 1 and %d.\n", optionCount)
			continue
		}
		return result, err
	}
}

func readSetup(reader *bufio.Reader, out io.Writer) ([]domain.PlayerSetup, error) {
	count := 0
	for count < 1 {
		line, err := prompt(reader, out, "How many players? ")
		if err != nil {
			return nil, err
		}
		if n, convErr := strconv.Atoi(line); convErr == nil && n > 0 {
			count = n
			continue
		}
		fmt.Fprintln(out, "Enter a positive number.")
	}

	setups := make([]domain.PlayerSetup, 0, count)
	for i := 1; i <= count; i++ {
		name := ""
		for name == "" {
			line, err := prompt(reader, out, fmt.Sprintf("Player %d name: ", i))
			if err != nil {
				return nil, err
			}
			name = line
		}

		var category domain.AgeCategory
		for category == "" {
			line, err := prompt(reader, out, fmt.Sprintf("Is %s a child or an adult? ", name))
			if err != nil {
				return nil, err
			}
			parsed, parseErr := domain.ParseAgeCategory(line)
			if parseErr != nil {
				fmt.Fprintln(out, "Type child or adult.")
				continue
			}
			category = parsed
		}
		setups = append(setups, domain.PlayerSetup{Name: name, Category: category})
	}
	return setups, nil
}

func prompt(reader *bufio.Reader, out io.Writer, text string) (string, error) {
	fmt.Fprint(out, text)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printTurn(out io.Writer, turn domain.Turn) {
	fmt.Fprintf(out, "\nRound %d: %s's turn\n", turn.Round, turn.Player)
	fmt.Fprintf(out, "[%s] %s\n\n", turn.Question.Category, turn.Question.Prompt)
	for i, option := range turn.Question.Options {
		fmt.Fprintf(out, "%d. %s\n", i+1, option)
	}
	fmt.Fprintln(out)
}

func printResult(out io.Writer, result domain.AnswerResult) {
	if result.Correct {
		fmt.Fprintf(out, "Correct! %s now has %d.\n", result.Player, result.TotalScore)
		return
	}
	fmt.Fprintf(out, "Wrong. The correct answer was %s.\n", result.CorrectAnswer)
}

// printSkips reports players whose question could not be fetched.
func printSkips(out io.Writer, events <-chan domain.TurnEvent) {
	for {
		select {
		case event := <-events:
			if event.Type == domain.EventFetchError && event.Failure != nil {
				fmt.Fprintf(out, "Could not get a question for %s (%s), skipping their turn.\n", event.Player, event.Failure.Message)
			}
		default:
			return
		}
	}
}

func printLeaderboard(out io.Writer, ranked []domain.Player) {
	fmt.Fprintln(out, "\nFinal leaderboard")
	for i, player := range ranked {
		fmt.Fprintf(out, "%d. %s %d\n", i+1, player.Name, player.Score)
	}
}
