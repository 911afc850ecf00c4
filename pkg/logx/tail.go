package logx

import (
	"bufio"
	"fmt"
	"os"
)

// Tail returns the last n lines of the file at path, oldest first.
// Rotation keeps the active file small (MaxSizeMB), so a forward scan with a ring is fine.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		ring[count%n] = sc.Text()
		count++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if count < n {
		return append([]string(nil), ring[:count]...), nil
	}
	out := make([]string, 0, n)
	start := count % n
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return out, nil
}
