package commands

import (
	"context"
	"fmt"
	"log/slog"
	"ltbxd-scraper/internal/scrapers/letterboxd"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// optionFlags registers the field selection flags shared by every query command.
func optionFlags(flags *pflag.FlagSet, fields ...string) {
	flags.Int("max", 0, "The maximum number of items to return, 0 means all of them.")
	for _, field := range fields {
		flags.Bool(field, true, fmt.Sprintf("Include the %s field.", strings.ReplaceAll(field, "-", " ")))
	}
}

// readOptions only sets the fields the user passed explicitly so unset ones
// keep their default.
func readOptions(flags *pflag.FlagSet) (letterboxd.Options, error) {
	var opts letterboxd.Options
	limit, err := flags.GetInt("max")
	if err != nil {
		return opts, err
	}
	opts.Max = limit

	targets := map[string]**bool{
		"imdb-id":            &opts.IMDBID,
		"poster":             &opts.Poster,
		"posters":            &opts.Posters,
		"summary":            &opts.Summary,
		"amount":             &opts.Amount,
		"alternative-titles": &opts.AlternativeTitles,
		"director":           &opts.Director,
	}
	for name, target := range targets {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return opts, err
		}
		*target = letterboxd.Bool(value)
	}
	return opts, nil
}

type queryOutput[T any] struct {
	kind   string
	render func(a *app, result letterboxd.QueryResult[T])
	save   func(ctx context.Context, a *app, result letterboxd.QueryResult[T]) (string, error)
}

func finishQuery[T any](ctx context.Context, a *app, out queryOutput[T], result letterboxd.QueryResult[T], elapsed time.Duration) error {
	slog.Info("query finished", "kind", out.kind, "status", result.Status, "items", len(result.Data), "seconds", elapsed.Seconds())

	if a.flags.format == FORMAT_JSON {
		err := writeJSON(os.Stdout, result)
		if err != nil {
			return err
		}
	} else {
		out.render(a, result)
	}

	if a.store != nil {
		id, err := out.save(ctx, a, result)
		if err != nil {
			slog.Error("failed to export result", "err", err)
		} else {
			slog.Info("exported result", "db", a.cfg.Database, "query_id", id)
		}
	}
	if a.tracker != nil && a.flags.stats && a.flags.format == FORMAT_TABLE {
		renderStats(os.Stderr, a.tracker.Stats())
	}

	if result.Status != letterboxd.STATUS_OK {
		return fmt.Errorf("%s query failed: %s", out.kind, result.ErrorMessage)
	}
	return nil
}

func filmsOutput(kind, input string) queryOutput[letterboxd.Film] {
	return queryOutput[letterboxd.Film]{
		kind: kind,
		render: func(a *app, result letterboxd.QueryResult[letterboxd.Film]) {
			renderFilms(os.Stdout, result)
		},
		save: func(ctx context.Context, a *app, result letterboxd.QueryResult[letterboxd.Film]) (string, error) {
			return a.store.SaveFilms(ctx, kind, input, result)
		},
	}
}

var watchlistCmd = &cobra.Command{
	Use:   "watchlist <username>",
	Short: "Prints the films on a user's watchlist.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readOptions(cmd.Flags())
		if err != nil {
			return err
		}
		t1 := time.Now()
		result := current.scraper.GetWatchlist(cmd.Context(), letterboxd.UserQuery{
			Username: args[0],
			Options:  opts,
		})
		return finishQuery(cmd.Context(), current, filmsOutput("watchlist", args[0]), result, time.Since(t1))
	},
}

var listCmd = &cobra.Command{
	Use:   "list <url>",
	Short: "Prints the films of a list, given its url.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readOptions(cmd.Flags())
		if err != nil {
			return err
		}
		t1 := time.Now()
		result := current.scraper.GetListFilms(cmd.Context(), letterboxd.ListQuery{
			Url:     args[0],
			Options: opts,
		})
		return finishQuery(cmd.Context(), current, filmsOutput("list", args[0]), result, time.Since(t1))
	},
}

var listsCmd = &cobra.Command{
	Use:   "lists <username>",
	Short: "Prints the lists a user has created.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readOptions(cmd.Flags())
		if err != nil {
			return err
		}
		t1 := time.Now()
		result := current.scraper.GetUserLists(cmd.Context(), letterboxd.UserQuery{
			Username: args[0],
			Options:  opts,
		})
		return finishQuery(cmd.Context(), current, queryOutput[letterboxd.ListCover]{
			kind: "lists",
			render: func(a *app, result letterboxd.QueryResult[letterboxd.ListCover]) {
				renderLists(os.Stdout, result)
			},
			save: func(ctx context.Context, a *app, result letterboxd.QueryResult[letterboxd.ListCover]) (string, error) {
				return a.store.SaveLists(ctx, args[0], result)
			},
		}, result, time.Since(t1))
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <title...>",
	Short: "Searches letterboxd for films matching a title.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readOptions(cmd.Flags())
		if err != nil {
			return err
		}
		title := strings.Join(args, " ")
		t1 := time.Now()
		result := current.scraper.SearchFilm(cmd.Context(), letterboxd.SearchQuery{
			Title:   title,
			Options: opts,
		})
		return finishQuery(cmd.Context(), current, queryOutput[letterboxd.SearchFilm]{
			kind: "search",
			render: func(a *app, result letterboxd.QueryResult[letterboxd.SearchFilm]) {
				renderSearch(os.Stdout, result)
			},
			save: func(ctx context.Context, a *app, result letterboxd.QueryResult[letterboxd.SearchFilm]) (string, error) {
				return a.store.SaveSearch(ctx, title, result)
			},
		}, result, time.Since(t1))
	},
}

func init() {
	optionFlags(watchlistCmd.Flags(), "imdb-id", "poster")
	optionFlags(listCmd.Flags(), "imdb-id", "poster")
	optionFlags(listsCmd.Flags(), "posters", "summary", "amount")
	optionFlags(searchCmd.Flags(), "alternative-titles", "poster", "director")

	rootCmd.AddCommand(watchlistCmd, listCmd, listsCmd, searchCmd)
}
