package sensor

import (
	"bufio"
	"fmt"
	"strings"
	"sync"

	"github.com/kimlab-seismo/detectQuake/internal/fsutil"
)

// FixtureSensor replays readings loaded from a text file of "x,y,z" or JSON
// lines, looping at the end. It backs the daemon's dev mode.
type FixtureSensor struct {
	Base

	path string

	// FS is where the fixture file is read from. Nil means the OS filesystem.
	FS fsutil.FileSystem

	mu       sync.Mutex
	readings []Reading
	next     int
}

// NewFixtureSensor creates a sensor that replays the file at path once opened.
func NewFixtureSensor(path string) *FixtureSensor {
	f := &FixtureSensor{path: path}
	f.Init(TypeFixture, path)
	return f
}

// Open loads the fixture file. Blank lines and lines starting with # are skipped.
func (f *FixtureSensor) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readings != nil {
		return nil
	}

	fsys := f.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	file, err := fsys.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open fixtures file: %w", err)
	}
	defer file.Close()

	var readings []Reading
	scan := bufio.NewScanner(file)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := ParseReading(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", f.path, lineNo, err)
		}
		readings = append(readings, r)
	}
	if err := scan.Err(); err != nil {
		return fmt.Errorf("failed to read fixtures file: %w", err)
	}
	if len(readings) == 0 {
		return fmt.Errorf("fixtures file %s has no readings", f.path)
	}

	f.readings = readings
	f.next = 0
	f.setPort(0)
	return nil
}

// Close releases the loaded readings.
func (f *FixtureSensor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readings == nil {
		return nil
	}
	f.readings = nil
	f.setPort(-1)
	return nil
}

// Read returns the next fixture reading.
func (f *FixtureSensor) Read() (Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readings == nil {
		return Reading{}, ErrNotOpen
	}
	r := f.readings[f.next]
	f.next = (f.next + 1) % len(f.readings)
	return r, nil
}

// Len returns the number of loaded readings.
func (f *FixtureSensor) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.readings)
}
