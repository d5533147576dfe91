package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/drpcorg/taskstore"
	"github.com/drpcorg/taskstore/records"
	"github.com/ergochat/readline"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("update"),
	readline.PcItem("clear"),
	readline.PcItem("get"),
	readline.PcItem("dep"),
	readline.PcItem("undep"),
	readline.PcItem("deps"),
	readline.PcItem("dirty"),
	readline.PcItem("clean"),
	readline.PcItem("stats"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func parseTask(arg string) (records.TaskID, error) {
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "bad task id %q", arg)
	}
	if n == 0 {
		return 0, errors.Errorf("bad task id %q, zero is reserved", arg)
	}
	return records.TaskID(n), nil
}

func parseCell(arg string) (records.CellID, error) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return records.CellID{}, errors.Errorf("bad cell id %q, want type:index", arg)
	}
	typ, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return records.CellID{}, errors.Wrapf(err, "bad cell type %q", parts[0])
	}
	idx, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return records.CellID{}, errors.Wrapf(err, "bad cell index %q", parts[1])
	}
	return records.CellID{Type: uint32(typ), Index: uint32(idx)}, nil
}

const help = `update TASK TYPE:IDX VALUE  store a cell value
clear TASK TYPE:IDX         drop a cell value
get TASK TYPE:IDX           read a cell value
dep TASK TYPE:IDX READER    record a dependency edge
undep TASK TYPE:IDX READER  drop a dependency edge
deps TASK TYPE:IDX          list dependents of a cell
dirty TASK                  mark a task stale
clean TASK                  clear the dirty flag
stats                       print storage stats
exit`

func main() {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     "/tmp/taskstore_repl.tmp",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	engine := taskstore.NewEngine[string](taskstore.Options{})
	prometheus.MustRegister(
		taskstore.CellUpdateCount,
		taskstore.InvalidationFanout,
		taskstore.InvalidatedTaskCount,
		taskstore.IndexConversionCount,
		taskstore.NewStorageCollector(engine.Store()),
	)
	ctx := context.Background()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		args := strings.Split(line, " ")
		cmd := args[0]
		err = nil
		switch cmd {
		case "update":
			if len(args) != 4 {
				err = errors.New("usage: update TASK TYPE:IDX VALUE")
				break
			}
			var task records.TaskID
			var cell records.CellID
			if task, err = parseTask(args[1]); err != nil {
				break
			}
			if cell, err = parseCell(args[2]); err != nil {
				break
			}
			engine.UpdateCell(ctx, task, cell, args[3])
		case "clear":
			if len(args) != 3 {
				err = errors.New("usage: clear TASK TYPE:IDX")
				break
			}
			var task records.TaskID
			var cell records.CellID
			if task, err = parseTask(args[1]); err != nil {
				break
			}
			if cell, err = parseCell(args[2]); err != nil {
				break
			}
			engine.ClearCell(ctx, task, cell)
		case "get":
			if len(args) != 3 {
				err = errors.New("usage: get TASK TYPE:IDX")
				break
			}
			var task records.TaskID
			var cell records.CellID
			if task, err = parseTask(args[1]); err != nil {
				break
			}
			if cell, err = parseCell(args[2]); err != nil {
				break
			}
			var value string
			if value, err = engine.ReadCell(ctx, task, cell); err == nil {
				fmt.Println(value)
			}
		case "dep", "undep":
			if len(args) != 4 {
				err = errors.Errorf("usage: %s TASK TYPE:IDX READER", cmd)
				break
			}
			var task, reader records.TaskID
			var cell records.CellID
			if task, err = parseTask(args[1]); err != nil {
				break
			}
			if cell, err = parseCell(args[2]); err != nil {
				break
			}
			if reader, err = parseTask(args[3]); err != nil {
				break
			}
			if cmd == "dep" {
				_, err = engine.AddDependent(task, cell, reader)
			} else {
				engine.RemoveDependent(task, cell, reader)
			}
		case "deps":
			if len(args) != 3 {
				err = errors.New("usage: deps TASK TYPE:IDX")
				break
			}
			var task records.TaskID
			var cell records.CellID
			if task, err = parseTask(args[1]); err != nil {
				break
			}
			if cell, err = parseCell(args[2]); err != nil {
				break
			}
			for _, d := range engine.Dependents(task, cell) {
				fmt.Println(d)
			}
		case "dirty", "clean":
			if len(args) != 2 {
				err = errors.Errorf("usage: %s TASK", cmd)
				break
			}
			var task records.TaskID
			if task, err = parseTask(args[1]); err != nil {
				break
			}
			if cmd == "dirty" {
				engine.MarkDirty(task)
			} else {
				engine.ClearDirty(task)
			}
		case "stats":
			stats := engine.Store().Stats()
			fmt.Printf("tasks %d, records %d, indexed %d\n",
				stats.Tasks, stats.Records, stats.IndexedTasks)
		case "help":
			fmt.Println(help)
		case "exit", "quit":
			return
		default:
			err = errors.Errorf("unknown command %q", cmd)
		}
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
	}
}
