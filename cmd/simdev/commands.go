package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/ZanzyTHEbar/similar-dev-search/internal/activity"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/database"
	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/monitoring"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/similarity"
	"github.com/tidwall/pretty"
	"github.com/urfave/cli/v2"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "simdev",
		Usage: "Find developers with similar language and identifier usage",
		Commands: []*cli.Command{
			cmdRank(),
			cmdFeatures(),
			cmdStore(),
		},
	}
}

func inputFlag(dest *string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "input",
		Aliases:     []string{"i"},
		Usage:       "Activity document path, - for stdin",
		Required:    true,
		Destination: dest,
	}
}

func cmdRank() *cli.Command {
	var (
		input  string
		query  string
		format string
	)

	return &cli.Command{
		Name:  "rank",
		Usage: "Rank the developers most similar to a query developer",
		Flags: []cli.Flag{
			inputFlag(&input),
			&cli.StringFlag{
				Name:        "query",
				Aliases:     []string{"q"},
				Usage:       "Query developer identifier",
				Required:    true,
				Destination: &query,
			},
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "Output format: json or table",
				Value:       formatJSON,
				Destination: &format,
			},
		},
		Action: func(c *cli.Context) error {
			act, err := readActivity(c.App.Reader, input)
			if err != nil {
				return err
			}
			result, err := similarity.FindSimilarDevelopers(query, act)
			if err != nil {
				return err
			}
			return writeResult(c.App.Writer, result, format)
		},
	}
}

func cmdFeatures() *cli.Command {
	var (
		input     string
		developer string
	)

	return &cli.Command{
		Name:  "features",
		Usage: "Print a developer's aggregated feature counts",
		Flags: []cli.Flag{
			inputFlag(&input),
			&cli.StringFlag{
				Name:        "developer",
				Aliases:     []string{"d"},
				Usage:       "Developer identifier",
				Required:    true,
				Destination: &developer,
			},
		},
		Action: func(c *cli.Context) error {
			act, err := readActivity(c.App.Reader, input)
			if err != nil {
				return err
			}
			features, err := similarity.Aggregate(act)
			if err != nil {
				return err
			}
			vector, ok := features.Vector(developer)
			if !ok {
				return apperrors.NewDeveloperNotFoundError(developer)
			}
			return writeFeatures(c.App.Writer, vector)
		},
	}
}

func cmdStore() *cli.Command {
	var (
		input   string
		dataDir string
	)

	return &cli.Command{
		Name:  "store",
		Usage: "Validate an activity document and store it as a snapshot",
		Flags: []cli.Flag{
			inputFlag(&input),
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "Snapshot database directory",
				Value:       "./data",
				EnvVars:     []string{"DATA_DIR"},
				Destination: &dataDir,
			},
		},
		Action: func(c *cli.Context) error {
			doc, err := readInput(c.App.Reader, input)
			if err != nil {
				return err
			}

			db, err := database.NewDB(dataDir)
			if err != nil {
				return apperrors.NewStorageError("failed to open snapshot store", err)
			}
			defer apperrors.SafeClose(db, "database")

			logger := monitoring.NewLoggerWithWriter(c.App.ErrWriter, slog.LevelWarn)
			service := database.NewSnapshotService(database.NewRepository(db), logger)

			snapshot, err := service.Store(c.Context, doc, "cli")
			if err != nil {
				return err
			}

			out, err := json.Marshal(snapshot)
			if err != nil {
				return err
			}
			_, err = c.App.Writer.Write(pretty.Pretty(out))
			return err
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("failed to read %s", path), err)
	}
	return data, nil
}

func readActivity(stdin io.Reader, path string) (similarity.Activity, error) {
	data, err := readInput(stdin, path)
	if err != nil {
		return nil, err
	}
	return activity.Decode(data)
}

func writeResult(w io.Writer, result similarity.Result, format string) error {
	switch format {
	case formatJSON:
		out, err := json.Marshal(result)
		if err != nil {
			return err
		}
		_, err = w.Write(pretty.Pretty(out))
		return err
	case formatTable:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tDEVELOPER\tSCORE")
		for i, m := range result {
			fmt.Fprintf(tw, "%d\t%s\t%.4f\n", i+1, m.Developer, m.Score)
		}
		return tw.Flush()
	}
	return apperrors.NewValidationError(fmt.Sprintf("unknown format %q", format))
}

func writeFeatures(w io.Writer, vector similarity.FeatureVector) error {
	names := make([]string, 0, len(vector))
	for name := range vector {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tCOUNT")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, vector[name])
	}
	return tw.Flush()
}
