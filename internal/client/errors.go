package client

import "fmt"

func errf(format string, args ...any) error {
	return fmt.Errorf("client: "+format, args...)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
