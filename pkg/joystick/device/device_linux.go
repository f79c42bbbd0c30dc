//go:build linux
// +build linux

package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"syscall"
	"unsafe"
)

const (
	iocGAXES    uint = 0x80016a11
	iocGBUTTONS uint = 0x80016a12
	iocGNAME    uint = 0x80ff6a13

	evBTN  uint8 = 0x01
	evAXIS uint8 = 0x02
	evINIT uint8 = 0x80

	eventSize = 8
)

type jsDevice struct {
	file        *os.File
	index       int
	name        string
	axisCount   uint8
	buttonCount uint8
	buf         [eventSize]byte
}

// Path returns the device node of a joystick index.
func Path(index int) string {
	return fmt.Sprintf("/dev/input/js%d", index)
}

// Open opens the device with specified index.
func Open(index int) (Device, error) {
	f, err := os.OpenFile(Path(index), os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	d := &jsDevice{file: f, index: index}
	var name [256]byte
	for _, q := range []struct {
		req uint
		ptr unsafe.Pointer
	}{
		{iocGAXES, unsafe.Pointer(&d.axisCount)},
		{iocGBUTTONS, unsafe.Pointer(&d.buttonCount)},
		{iocGNAME, unsafe.Pointer(&name)},
	} {
		if errno := d.ioctl(q.req, q.ptr); errno != 0 {
			f.Close()
			return nil, errno
		}
	}
	if pos := bytes.IndexByte(name[:], 0); pos >= 0 {
		d.name = string(name[:pos])
	} else {
		d.name = string(name[:])
	}
	return d, nil
}

// DetectAndOpen opens the first available device from startIndex.
// It returns nil without error if none exists.
func DetectAndOpen(startIndex int) (Device, error) {
	for index := startIndex; index < 256; index++ {
		d, err := Open(index)
		if err == nil {
			return d, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, nil
}

func (d *jsDevice) Close() error     { return d.file.Close() }
func (d *jsDevice) Index() int       { return d.index }
func (d *jsDevice) Name() string     { return d.name }
func (d *jsDevice) AxisCount() int   { return int(d.axisCount) }
func (d *jsDevice) ButtonCount() int { return int(d.buttonCount) }

// ReadEvent implements Device.
func (d *jsDevice) ReadEvent() (Event, error) {
	if _, err := io.ReadFull(d.file, d.buf[:]); err != nil {
		return nil, err
	}
	return decodeEvent(d.buf[:]), nil
}

// decodeEvent decodes struct js_event: time u32, value s16, type u8, number u8.
func decodeEvent(b []byte) Event {
	ev := rawEvent{
		value:  int16(binary.LittleEndian.Uint16(b[4:6])),
		kind:   b[6],
		number: b[7],
	}
	switch ev.kind &^ evINIT {
	case evBTN:
		return buttonEvent{ev}
	case evAXIS:
		return axisEvent{ev}
	}
	return ev
}

type rawEvent struct {
	value  int16
	kind   uint8
	number uint8
}

func (e rawEvent) IsInit() bool { return e.kind&evINIT != 0 }
func (e rawEvent) Index() int   { return int(e.number) }

type axisEvent struct{ rawEvent }

func (e axisEvent) Value() int { return int(e.value) }

type buttonEvent struct{ rawEvent }

func (e buttonEvent) Pressed() bool { return e.value != 0 }

func (d *jsDevice) ioctl(req uint, ptr unsafe.Pointer) syscall.Errno {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, d.file.Fd(), uintptr(req), uintptr(ptr))
	return errno
}
