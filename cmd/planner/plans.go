package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"floorplan/internal/converter/graph"
	"floorplan/internal/converter/mapper"
	"floorplan/internal/converter/parser"
	"floorplan/internal/planner/document"
	"floorplan/internal/planner/txn"
)

// ============================================================
// Offline Plan Commands
// ============================================================

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	elements, err := parser.ParseSVG(bytes.NewReader(data))
	if err != nil {
		return err
	}

	name := importName
	if name == "" {
		name = filepath.Base(args[0])
	}
	opts := txn.DefaultOptions()
	opts.UndoDepth = e.cfg.UndoDepth
	doc := document.New("", name, opts)
	defer doc.Close()

	var (
		req  *mapper.ImportRequest
		snap document.Snapshot
	)
	err = doc.Do(func(s *document.Session) error {
		req = mapper.NewImportRequest(elements, graph.DefaultOptions(), s.Associations())
		if err := s.Engine().Apply(req); err != nil {
			return err
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	if _, err := e.repo.Save(ctx, doc.ID(), snap); err != nil {
		return err
	}
	if err := e.files.SaveFile(doc.ID(), e.files.SourcePath(doc.ID()), data); err != nil {
		e.logger.Warn("source not kept", "id", doc.ID(), "error", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"id": doc.ID(), "name": name, "summary": req.Summary()})
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	plan, err := e.repo.Load(ctx, args[0])
	if err != nil {
		return err
	}
	doc, err := document.FromSnapshot(plan.ID, plan.Snapshot, txn.DefaultOptions())
	if err != nil {
		return err
	}
	defer doc.Close()

	var svg string
	err = doc.Do(func(s *document.Session) error {
		svg, err = mapper.NewRenderer(0).Render(s.Graph(), s.Visible())
		return err
	})
	if err != nil {
		return err
	}

	if renderOut == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), svg)
		return err
	}
	return os.WriteFile(renderOut, []byte(svg), 0o644)
}
