// Package main loads a YAML question bank into PostgreSQL, or lists and
// deletes stored banks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cory-johannsen/quizwar/internal/config"
	"github.com/cory-johannsen/quizwar/internal/game/question"
	"github.com/cory-johannsen/quizwar/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	file := flag.String("file", "", "YAML question bank to import")
	name := flag.String("bank", "", "bank name; defaults to questions.bank")
	list := flag.Bool("list", false, "list stored banks and exit")
	del := flag.Bool("delete", false, "delete the named bank and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("loading config: %v", err)
	}
	if *name == "" {
		*name = cfg.Questions.Bank
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		fatalf("connecting to database: %v", err)
	}
	defer pool.Close()
	if err := pool.RequireSchema(ctx); err != nil {
		fatalf("%v", err)
	}
	repo := postgres.NewQuestionRepository(pool.DB())

	switch {
	case *list:
		banks, err := repo.ListBanks(ctx)
		if err != nil {
			fatalf("listing banks: %v", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tQUESTIONS\tUPDATED")
		for _, b := range banks {
			fmt.Fprintf(w, "%s\t%d\t%s\n", b.Name, b.Size, b.UpdatedAt.Format(time.RFC3339))
		}
		w.Flush()
	case *del:
		if err := repo.DeleteBank(ctx, *name); err != nil {
			fatalf("deleting bank %q: %v", *name, err)
		}
		fmt.Printf("deleted bank %q\n", *name)
	default:
		if *file == "" {
			fmt.Fprintln(os.Stderr, "usage: import-questions -file <bank.yaml> [-bank <name>] | -list | -delete -bank <name>")
			os.Exit(1)
		}
		start := time.Now()
		bank, err := question.LoadFile(*file)
		if err != nil {
			fatalf("reading %s: %v", *file, err)
		}
		if err := repo.SaveBank(ctx, *name, bank); err != nil {
			fatalf("saving bank %q: %v", *name, err)
		}
		fmt.Printf("imported %d questions into %q in %s\n", bank.Len(), *name, time.Since(start).Round(time.Millisecond))
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
