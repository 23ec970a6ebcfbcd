package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/wisefood/wisefood-data-api/internal/app"
	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  wisefood-data-api ingest <rows.jsonl>       ingest a batch of raw FCT rows
  wisefood-data-api register-source <s.json>  register a source and print its id
  wisefood-data-api sources                   list registered sources
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	switch os.Args[1] {
	case "ingest":
		if len(os.Args) != 3 {
			usage()
		}
		if err := runIngest(ctx, a, os.Args[2]); err != nil {
			a.Log.Error("ingest failed", "error", err)
			os.Exit(1)
		}
	case "register-source":
		if len(os.Args) != 3 {
			usage()
		}
		if err := runRegisterSource(ctx, a, os.Args[2]); err != nil {
			a.Log.Error("register source failed", "error", err)
			os.Exit(1)
		}
	case "sources":
		if err := runListSources(ctx, a); err != nil {
			a.Log.Error("list sources failed", "error", err)
			os.Exit(1)
		}
	default:
		usage()
	}
}

func runIngest(ctx context.Context, a *app.App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var rows []*types.RawRow
	dec := json.NewDecoder(f)
	for {
		var row types.RawRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("decode row %d: %w", len(rows), err)
		}
		rows = append(rows, &row)
	}
	a.Log.Info("batch loaded", "path", path, "rows", len(rows))

	res, err := a.Pipeline.Run(ctx, rows)
	if err != nil {
		return err
	}
	for _, re := range res.Errors {
		a.Log.Warn("row error", "index", re.Index, "source_row_id", re.SourceRowID, "error", re.Err.Error())
	}
	fmt.Printf("total=%d succeeded=%d failed=%d records_created=%d records_refreshed=%d concepts_created=%d ambiguous=%d\n",
		res.Total, res.Succeeded, res.Failed, res.RecordsCreated, res.RecordsRefreshed, res.ConceptsCreated, res.Ambiguous)
	return nil
}

func runRegisterSource(ctx context.Context, a *app.App, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var src types.SourceInfo
	if err := json.Unmarshal(raw, &src); err != nil {
		return err
	}
	stored, err := a.Repos.Sources.Create(dbctx.Context{Ctx: ctx}, &src)
	if err != nil {
		return err
	}
	fmt.Println(stored.ID.String())
	return nil
}

func runListSources(ctx context.Context, a *app.App) error {
	sources, err := a.Repos.Sources.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return err
	}
	for _, s := range sources {
		n, err := a.Repos.Records.CountBySource(dbctx.Context{Ctx: ctx}, s.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\ttrust=%d\trecords=%d\n", s.ID, s.Name, s.Version, s.TrustPriority, n)
	}
	return nil
}
