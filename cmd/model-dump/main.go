package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chrissnell/stellaratm/internal/storage/checkpoint"
	"github.com/chrissnell/stellaratm/internal/storage/sqlite"
	"github.com/chrissnell/stellaratm/internal/types"
)

func main() {
	ckptFile := flag.String("checkpoint", "", "Checkpoint file to print")
	dbPath := flag.String("db", "", "SQLite model store to read from")
	runID := flag.String("id", "", "Run ID to print from -db; lists runs when empty")
	asJSON := flag.Bool("json", false, "Print JSON instead of a table")
	flag.Parse()

	var err error
	switch {
	case *ckptFile != "":
		err = dumpCheckpoint(os.Stdout, *ckptFile, *asJSON)
	case *dbPath != "":
		err = dumpStore(os.Stdout, *dbPath, *runID, *asJSON)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dumpCheckpoint(w io.Writer, path string, asJSON bool) error {
	snap, err := checkpoint.Load(path)
	if err != nil {
		return err
	}
	st, err := snap.Structure()
	if err != nil {
		return err
	}

	m := &types.Atmosphere{
		Teff:       snap.Teff,
		LogG:       snap.LogG,
		ZScale:     snap.ZScale,
		Created:    snap.Saved,
		Iterations: snap.Iteration,
	}
	m.FillLevels(st)

	if asJSON {
		return writeJSON(w, m)
	}
	fmt.Fprintf(w, "Checkpoint %s (saved %s)\n", path, snap.Saved.Format("2006-01-02 15:04:05Z07:00"))
	writeTable(w, m)
	return nil
}

func dumpStore(w io.Writer, dbPath, id string, asJSON bool) error {
	ctx := context.Background()
	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if id == "" {
		runs, err := store.List(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(w, runs)
		}
		fmt.Fprintf(w, "%-36s  %8s  %5s  %6s  %-4s  %5s  %s\n", "ID", "TEFF", "LOGG", "ZSCALE", "ITER", "CONV", "CREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%-36s  %8.1f  %5.2f  %6.2f  %-4d  %5v  %s\n",
				r.ID, r.Teff, r.LogG, r.ZScale, r.Iterations, r.Converged, r.Created.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	m, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, m)
	}
	fmt.Fprintf(w, "Run %s (%s regime, created %s, JD %.5f)\n", m.ID, m.Regime, m.Created.Format("2006-01-02 15:04:05"), m.CreatedJD)
	writeTable(w, m)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, m *types.Atmosphere) {
	fmt.Fprintf(w, "  Teff %.1f K  log g %.2f  Z/Zsun %.2f  iterations %d  boundary %d\n",
		m.Teff, m.LogG, m.ZScale, m.Iterations, m.Boundary)
	fmt.Fprintf(w, "%4s  %11s  %11s  %9s  %11s  %11s  %11s  %5s\n",
		"i", "tau", "z (cm)", "T (K)", "Pgas", "rho", "kappa", "mu")
	for _, l := range m.Levels {
		fmt.Fprintf(w, "%4d  %11.4e  %11.4e  %9.1f  %11.4e  %11.4e  %11.4e  %5.3f\n",
			l.Index, l.Tau, l.Depth, l.Temp, l.Pgas, l.Rho, l.Kappa, l.Mu)
	}
}
