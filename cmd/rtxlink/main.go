// Command rtxlink is the host-side CLI front end for the rtxlink core: it
// parses a device path and a command verb, drives pkg/rtxlink, and reports
// errors with the symbolic Errno name where applicable.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/OpenRTX/rtxlink-go/pkg/dat"
	"github.com/OpenRTX/rtxlink-go/pkg/link"
	"github.com/OpenRTX/rtxlink-go/pkg/rtxerr"
	"github.com/OpenRTX/rtxlink-go/pkg/rtxlink"
	"github.com/OpenRTX/rtxlink-go/pkg/sessionlog"
	"github.com/OpenRTX/rtxlink-go/pkg/telemetry"
)

var (
	redisAddr    = flag.String("redis-addr", "", "Optional Redis address to mirror transfer telemetry to")
	redisPass    = flag.String("redis-pass", "", "Redis password")
	redisDB      = flag.Int("redis-db", 0, "Redis database number")
	sessionLog   = flag.String("session-log", "", "Optional CBOR session log file")
	legacyDriver = flag.Bool("legacy-driver", false, "Use the tarm/serial driver instead of go.bug.st/serial")
)

// argError marks a problem with the command line itself (a bad verb,
// missing or unparseable arguments) so run() can map it to exit code 1,
// distinct from a runtime failure talking to the radio.
type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }

func argErrorf(format string, a ...any) error {
	return &argError{msg: fmt.Sprintf(format, a...)}
}

func asArgError(err error) error {
	if err == nil {
		return nil
	}
	return &argError{msg: err.Error()}
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: rtxlink <device> <info|freqrx [MHz]|freqtx [MHz]|backup [dir]|restore <index> <file>>")
		return 1
	}
	device, verb, rest := args[0], args[1], args[2:]

	opener := link.OpenBugST
	if *legacyDriver {
		opener = link.OpenTarm
	}

	client, err := rtxlink.Open(device, opener)
	if err != nil {
		log.Printf("failed to open %s: %v", device, err)
		return 2
	}
	defer client.Close()

	slog, err := sessionlog.New(*sessionLog)
	if err != nil {
		log.Printf("failed to open session log: %v", err)
		return 2
	}
	defer slog.Close()

	telem, err := telemetry.Connect(*redisAddr, *redisPass, *redisDB, device)
	if err != nil {
		log.Printf("failed to connect to redis: %v", err)
		return 2
	}
	defer telem.Close()

	if err := dispatch(client, slog, telem, verb, rest); err != nil {
		logOperationError(verb, err)
		var ae *argError
		if errors.As(err, &ae) {
			return 1
		}
		return 3
	}
	return 0
}

func dispatch(c *rtxlink.Client, slog *sessionlog.Writer, telem *telemetry.Reporter, verb string, args []string) error {
	switch verb {
	case "info":
		return cmdInfo(c, slog, telem)
	case "freqrx":
		return cmdFreq(c, slog, "RX", args)
	case "freqtx":
		return cmdFreq(c, slog, "TX", args)
	case "backup":
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		return cmdBackup(c, slog, telem, dir)
	case "restore":
		if len(args) < 2 {
			return argErrorf("restore requires <index> <file>")
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return asArgError(fmt.Errorf("invalid memory index %q: %w", args[0], err))
		}
		return cmdRestore(c, slog, telem, index, args[1])
	default:
		return argErrorf("unknown command %q", verb)
	}
}

func cmdInfo(c *rtxlink.Client, slog *sessionlog.Writer, telem *telemetry.Reporter) error {
	name, err := c.Info()
	if err != nil {
		slog.Append(sessionlog.Entry{Channel: "CAT", Op: "INFO", Error: err.Error()})
		return err
	}
	slog.Append(sessionlog.Entry{Channel: "CAT", Op: "INFO", Detail: name})
	telem.ReportInfo(name)
	fmt.Println(name)
	return nil
}

func cmdFreq(c *rtxlink.Client, slog *sessionlog.Writer, which string, args []string) error {
	if len(args) == 0 {
		var mhz float64
		var err error
		if which == "RX" {
			mhz, err = c.FreqRX()
		} else {
			mhz, err = c.FreqTX()
		}
		if err != nil {
			slog.Append(sessionlog.Entry{Channel: "CAT", Op: "GET " + which, Error: err.Error()})
			return err
		}
		slog.Append(sessionlog.Entry{Channel: "CAT", Op: "GET " + which, Detail: fmt.Sprintf("%.4f MHz", mhz)})
		fmt.Printf("%.4f MHz\n", mhz)
		return nil
	}

	mhz, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return asArgError(fmt.Errorf("invalid frequency %q: %w", args[0], err))
	}
	if which == "RX" {
		err = c.SetFreqRX(mhz)
	} else {
		err = c.SetFreqTX(mhz)
	}
	if err != nil {
		slog.Append(sessionlog.Entry{Channel: "CAT", Op: "SET " + which, Error: err.Error()})
		return err
	}
	slog.Append(sessionlog.Entry{Channel: "CAT", Op: "SET " + which, Detail: fmt.Sprintf("%.4f MHz", mhz)})
	return nil
}

func cmdBackup(c *rtxlink.Client, slog *sessionlog.Writer, telem *telemetry.Reporter, dir string) error {
	progress := make(chan rtxlink.BackupProgress, 4)
	done := make(chan error, 1)
	go func() { done <- c.Backup(dir, progress) }()

	for p := range progress {
		fmt.Printf("\r[%d/%d] %s: %d/%d bytes", p.Index+1, p.Total, p.Mem.Name, p.Done, p.Size)
		telem.ReportProgress("backup:"+p.Mem.Name, p.Done, p.Size)
	}
	err := <-done
	fmt.Println()
	if err != nil {
		slog.Append(sessionlog.Entry{Channel: "FMP", Op: "BACKUP", Error: err.Error()})
		return err
	}
	slog.Append(sessionlog.Entry{Channel: "FMP", Op: "BACKUP", Detail: dir})
	return nil
}

func cmdRestore(c *rtxlink.Client, slog *sessionlog.Writer, telem *telemetry.Reporter, index int, file string) error {
	progress := make(chan dat.Progress, 4)
	done := make(chan error, 1)
	go func() { done <- c.Restore(index, file, progress) }()

	for p := range progress {
		fmt.Printf("\r%d/%d bytes", p.Done, p.Total)
		telem.ReportProgress(fmt.Sprintf("restore:%d", index), p.Done, p.Total)
	}
	err := <-done
	fmt.Println()
	if err != nil {
		slog.Append(sessionlog.Entry{Channel: "FMP", Op: "RESTORE", Error: err.Error()})
		return err
	}
	slog.Append(sessionlog.Entry{Channel: "FMP", Op: "RESTORE", Detail: file})
	return nil
}

func logOperationError(verb string, err error) {
	var peer *rtxerr.PeerError
	if errors.As(err, &peer) {
		log.Printf("%s failed: %s", verb, peer.Code)
		return
	}
	log.Printf("%s failed: %v", verb, err)
}
