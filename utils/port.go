package utils

import (
	"fmt"
	"net"
	"strconv"
)

// FindFreePort returns the first port in [start, end] that can be bound on localhost.
func FindFreePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no available ports found between %d-%d", start, end)
}
