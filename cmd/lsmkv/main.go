// Command lsmkv is a line-oriented demo shell over pkg/lsm's engine: put,
// del, scan, compact, and quit, reading a config file for the storage
// directory and flush threshold. Grounded on
// AndrewTheMaster-FundamentalsOfDesigningHighLoadApplications's cmd/lsmdb
// for the signal-handling shape and startup/shutdown logging.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maksimshengeliia/lsmkv/internal/config"
	"github.com/maksimshengeliia/lsmkv/internal/logging"
	"github.com/maksimshengeliia/lsmkv/pkg/lsm"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Warnf("lsmkv: loading config: %v", err)
		return 1
	}

	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		logging.Warnf("lsmkv: creating storage directory %q: %v", cfg.StorageDir, err)
		return 1
	}

	dao, err := lsm.Open(cfg.StorageDir, cfg.FlushThreshold)
	if err != nil {
		logging.Warnf("lsmkv: opening storage directory %q: %v", cfg.StorageDir, err)
		return 1
	}
	defer func() {
		if err := dao.Close(); err != nil {
			logging.Warnf("lsmkv: closing engine: %v", err)
		}
	}()

	logging.Infof("lsmkv: ready, storage_dir=%s flush_threshold=%d", cfg.StorageDir, cfg.FlushThreshold)

	done := make(chan struct{})
	go func() {
		defer close(done)
		repl(dao)
	}()

	select {
	case <-ctx.Done():
		fmt.Println("\nlsmkv: shutting down")
	case <-done:
	}
	return 0
}

// repl reads commands from stdin until EOF or "quit":
//
//	put <key> <value>
//	del <key>
//	scan [from]
//	compact
//	quit
func repl(dao *lsm.DAO) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if !dispatch(dao, line) {
				return
			}
		}
		fmt.Print("> ")
	}
}

func dispatch(dao *lsm.DAO, line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "quit", "exit":
		return false

	case "put":
		if len(fields) < 3 {
			fmt.Println("usage: put <key> <value>")
			return true
		}
		value := strings.Join(fields[2:], " ")
		if err := dao.Upsert([]byte(fields[1]), []byte(value)); err != nil {
			fmt.Printf("error: %v\n", err)
		}

	case "del":
		if len(fields) != 2 {
			fmt.Println("usage: del <key>")
			return true
		}
		if err := dao.Remove([]byte(fields[1])); err != nil {
			fmt.Printf("error: %v\n", err)
		}

	case "scan":
		var from []byte
		if len(fields) == 2 {
			from = []byte(fields[1])
		}
		printScan(dao, from)

	case "compact":
		if err := dao.Compact(); err != nil {
			fmt.Printf("error: %v\n", err)
		}

	default:
		fmt.Printf("unknown command %q (expected put/del/scan/compact/quit)\n", cmd)
	}
	return true
}

func printScan(dao *lsm.DAO, from []byte) {
	it := dao.Iterator(from)
	defer it.Close()

	for {
		record, ok := it.Next()
		if !ok {
			break
		}
		fmt.Printf("%s = %s\n", record.Key, record.Payload)
	}
	if err := it.Err(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}
