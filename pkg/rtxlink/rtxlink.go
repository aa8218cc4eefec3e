// Package rtxlink wires the CAT, FMP, and DAT channels over one serial
// link and exposes the blocking operations a host front end needs: device
// queries, frequency get/set, and whole-memory backup/restore.
package rtxlink

import (
	"fmt"
	"path/filepath"

	"github.com/OpenRTX/rtxlink-go/pkg/cat"
	"github.com/OpenRTX/rtxlink-go/pkg/dat"
	"github.com/OpenRTX/rtxlink-go/pkg/fmp"
	"github.com/OpenRTX/rtxlink-go/pkg/link"
)

// Client is the façade a front end drives: open once, call its operations,
// close at teardown.
type Client struct {
	link *link.Link
	cat  *cat.Channel
	fmp  *fmp.Channel
}

// Open opens device as the rtxlink serial port and wires up all three
// sub-protocols over it.
func Open(device string, opener link.Opener) (*Client, error) {
	l, err := link.Open(device, opener)
	if err != nil {
		return nil, err
	}
	return &Client{
		link: l,
		cat:  cat.New(l),
		fmp:  fmp.New(l),
	}, nil
}

// Close releases the underlying serial port.
func (c *Client) Close() error {
	return c.link.Close()
}

// Info returns the radio's device name.
func (c *Client) Info() (string, error) {
	return c.cat.Info()
}

// FreqRX returns the receive frequency in megahertz.
func (c *Client) FreqRX() (float64, error) {
	return c.cat.Freq(cat.RX)
}

// FreqTX returns the transmit frequency in megahertz.
func (c *Client) FreqTX() (float64, error) {
	return c.cat.Freq(cat.TX)
}

// SetFreqRX sets the receive frequency in megahertz.
func (c *Client) SetFreqRX(megahertz float64) error {
	return c.cat.SetFreq(cat.RX, megahertz)
}

// SetFreqTX sets the transmit frequency in megahertz.
func (c *Client) SetFreqTX(megahertz float64) error {
	return c.cat.SetFreq(cat.TX, megahertz)
}

// MemInfo enumerates the radio's memory regions.
func (c *Client) MemInfo() ([]fmp.MemInfo, error) {
	return c.fmp.MemInfo()
}

// BackupProgress reports a single memory region's progress within a
// multi-region Backup.
type BackupProgress struct {
	Index, Total int
	Mem          fmp.MemInfo
	Done, Size   int
}

// Backup enters file-transfer mode, enumerates every memory region, and
// dumps each into "<dir>/<name>.bin". Progress updates are delivered on
// the optional progress channel and are lossy if the consumer is slow.
func (c *Client) Backup(dir string, progress chan<- BackupProgress) error {
	if progress != nil {
		defer close(progress)
	}

	if err := c.cat.EnterFileTransferMode(); err != nil {
		return fmt.Errorf("enter file transfer mode: %w", err)
	}
	mems, err := c.fmp.MemInfo()
	if err != nil {
		return fmt.Errorf("enumerate memories: %w", err)
	}

	for i, mem := range mems {
		path := filepath.Join(dir, mem.Name+".bin")
		if progress == nil {
			if err := c.fmp.Dump(i, mem, path, nil); err != nil {
				return fmt.Errorf("dump memory %d (%s): %w", i, mem.Name, err)
			}
			continue
		}

		inner := make(chan dat.Progress, 1)
		done := make(chan struct{})
		go func(idx int, m fmp.MemInfo) {
			defer close(done)
			for p := range inner {
				select {
				case progress <- BackupProgress{Index: idx, Total: len(mems), Mem: m, Done: p.Done, Size: p.Total}:
				default:
				}
			}
		}(i, mem)
		// fmp.Channel.Dump closes inner on return; the draining goroutine
		// exits once that happens.
		err := c.fmp.Dump(i, mem, path, inner)
		<-done
		if err != nil {
			return fmt.Errorf("dump memory %d (%s): %w", i, mem.Name, err)
		}
	}
	return nil
}

// Restore flashes the memory region at index from path.
func (c *Client) Restore(index int, path string, progress chan<- dat.Progress) error {
	mems, err := c.fmp.MemInfo()
	if err != nil {
		return fmt.Errorf("enumerate memories: %w", err)
	}
	if index < 0 || index >= len(mems) {
		return fmt.Errorf("memory index %d out of range (0..%d)", index, len(mems)-1)
	}
	return c.fmp.Flash(index, mems[index], path, progress)
}
