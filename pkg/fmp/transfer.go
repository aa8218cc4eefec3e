package fmp

import (
	"github.com/OpenRTX/rtxlink-go/pkg/dat"
)

// Dump requests a DUMP of the memory region at index, awaits the FMP
// acknowledgement, and then receives exactly mem.Size bytes via DAT into
// path. Dump closes progress before returning, whether or not the DAT
// phase was ever reached.
func (c *Channel) Dump(index int, mem MemInfo, path string, progress chan<- dat.Progress) error {
	if progress != nil {
		defer close(progress)
	}
	if err := c.SendCmd(OpDump, [][]byte{{byte(index)}}); err != nil {
		return err
	}
	if _, err := c.WaitReply(OpDump); err != nil {
		return err
	}
	return dat.New(c.link).Receive(path, int(mem.Size), progress)
}

// Flash requests a FLASH of the memory region at index, awaits the FMP
// acknowledgement, and then sends exactly mem.Size bytes from path via
// DAT. Flash closes progress before returning, whether or not the DAT
// phase was ever reached.
func (c *Channel) Flash(index int, mem MemInfo, path string, progress chan<- dat.Progress) error {
	if progress != nil {
		defer close(progress)
	}
	if err := c.SendCmd(OpFlash, [][]byte{{byte(index)}}); err != nil {
		return err
	}
	if _, err := c.WaitReply(OpFlash); err != nil {
		return err
	}
	return dat.New(c.link).Send(path, int(mem.Size), progress)
}
