package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"mcrs.dev/internal/config"
	"mcrs.dev/internal/persistence/indexdb"
	persistlog "mcrs.dev/internal/persistence/log"
)

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	logger := log.New(os.Stderr, "[mcrsctl] ", log.LstdFlags|log.Lmicroseconds)
	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "usage: mcrsctl [-config mcrs.yaml] <new|info|verify|pack|unpack|archive|index|audit> [flags] [args]")
			os.Exit(2)
		}
		logger.Printf("%v", err)
		os.Exit(1)
	}
}

// env carries the shared runtime of one invocation.
type env struct {
	cfg    config.Config
	logger *log.Logger
	out    io.Writer

	idx   *indexdb.SQLiteIndex
	audit *persistlog.AuditLogger
}

func (e *env) Close() error {
	var errs []error
	if e.idx != nil {
		errs = append(errs, e.idx.Close())
	}
	if e.audit != nil {
		errs = append(errs, e.audit.Close())
	}
	return errors.Join(errs...)
}

func run(args []string, out io.Writer, logger *log.Logger) (err error) {
	fs := flag.NewFlagSet("mcrsctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfgPath := fs.String("config", "", "path to mcrs.yaml (optional)")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if fs.NArg() == 0 {
		return usagef("missing command")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	e := &env{cfg: cfg, logger: logger, out: out}
	if !cfg.DisableIndex {
		if e.idx, err = indexdb.OpenSQLite(cfg.IndexDB); err != nil {
			return fmt.Errorf("open index: %w", err)
		}
	}
	if !cfg.DisableAudit {
		e.audit = persistlog.NewAuditLogger(cfg.AuditDir)
	}
	defer func() {
		if cerr := e.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	cmd, rest := strings.TrimSpace(fs.Arg(0)), fs.Args()[1:]
	switch cmd {
	case "new":
		return newCmd(e, rest)
	case "info":
		return infoCmd(e, rest)
	case "verify":
		return verifyCmd(e, rest)
	case "pack":
		return packCmd(e, rest, true)
	case "unpack":
		return packCmd(e, rest, false)
	case "archive":
		return archiveCmd(e, rest)
	case "index":
		return indexCmd(e, rest)
	case "audit":
		return auditCmd(e, rest)
	}
	return usagef("unknown command %q", cmd)
}
