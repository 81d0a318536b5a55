package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// NewCLI builds the command line application. Running it without
// any command starts the web service.
func NewCLI() *cli.App {
	return &cli.App{
		Name:    "bookexplorer",
		Usage:   "Search a public book catalog, read book details and keep favorites",
		Version: fmt.Sprintf("%s (%s) %s", GitTag, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "./config.yml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` if it exists",
				Value: "./config.env",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the web service until interrupted",
				Action: serve,
			},
			{
				Name:  "search",
				Usage: "Search books by title, author and genre",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Words of the book title"},
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Name of the author"},
					&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Free text genre"},
					&cli.BoolFlag{Name: "json", Usage: "Print the results as json"},
				},
				Action: searchBooks,
			},
			{
				Name:      "show",
				Usage:     "Show the details of a book",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the book as json"},
				},
				Action: showBook,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*Config, error) {
	return LoadAndInitConfigs(c.String("config"), c.String("env-file"), GitCommit, GitTag, BuildTime)
}

func serve(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("application failed to initialized: %w", err)
	}
	app, err := NewApp(config)
	if err != nil {
		return fmt.Errorf("application failed to initialized: %w", err)
	}
	return app.Run()
}

// commandServices builds a catalog client and an in-memory favorites
// service for the one-shot commands.
func commandServices(c *cli.Context) (*zap.Logger, CatalogClient, *FavoritesService, *Config, error) {
	config, err := loadConfig(c)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger := SetupCLILogging(config)
	clock := NewClock(config.IsProduction)
	favorites := NewFavoritesService(logger, clock, NewFavoritesStore(), nil)
	return logger, NewCatalogClient(logger, &config.Catalog), favorites, config, nil
}

func searchBooks(c *cli.Context) error {
	logger, catalog, _, config, err := commandServices(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sc := NewSearchController(logger, catalog, config.Catalog.MaxResults)
	view, err := sc.Submit(c.Context, SearchFields{
		Title:  c.String("title"),
		Author: c.String("author"),
		Genre:  c.String("genre"),
	})
	if errors.Is(err, ErrValidation) {
		return cli.Exit(MsgValidation, 2)
	}
	if view.State == SearchError {
		return cli.Exit(view.Message, 1)
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, view)
	}
	return PrintSearchView(c.App.Writer, view)
}

func showBook(c *cli.Context) error {
	id := c.Args().First()
	if err := ValidateBookID(id); err != nil {
		return cli.Exit("please provide a valid book id", 2)
	}
	logger, catalog, favorites, _, err := commandServices(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dc := NewDetailController(logger, catalog, favorites, id)
	view := dc.Load(c.Context)
	if view.State == DetailError {
		if dc.NotFound() {
			return cli.Exit("book does not exist", 1)
		}
		return cli.Exit(view.Message, 1)
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, view.Book)
	}
	return PrintBook(c.App.Writer, *view.Book)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintSearchView writes the search results as a numbered list.
func PrintSearchView(w io.Writer, view SearchView) error {
	if view.State == SearchEmptyResults {
		_, err := fmt.Fprintln(w, view.Message)
		return err
	}
	for i, book := range view.Results {
		line := fmt.Sprintf("%2d. %s", i+1, book.Title)
		if len(book.Authors) > 0 {
			line += " by " + strings.Join(book.Authors, ", ")
		}
		if _, err := fmt.Fprintf(w, "%s [%s]\n", line, book.ID); err != nil {
			return err
		}
	}
	return nil
}

// PrintBook writes the details of a book, skipping the missing fields.
func PrintBook(w io.Writer, book BookRecord) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title:       %s\n", book.Title)
	if len(book.Authors) > 0 {
		fmt.Fprintf(&sb, "Authors:     %s\n", strings.Join(book.Authors, ", "))
	}
	if book.Publisher != "" {
		fmt.Fprintf(&sb, "Publisher:   %s\n", book.Publisher)
	}
	if book.PublishedDate != "" {
		fmt.Fprintf(&sb, "Published:   %s\n", book.PublishedDate)
	}
	if book.ThumbnailURL != "" {
		fmt.Fprintf(&sb, "Thumbnail:   %s\n", book.ThumbnailURL)
	}
	fmt.Fprintf(&sb, "ID:          %s\n", book.ID)
	if book.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", book.Description)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

