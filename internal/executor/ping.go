package executor

import "strconv"

// PingArgs builds the platform ping arguments for count echo requests.
func PingArgs(goos, host string, count int) []string {
	if count <= 0 {
		count = 1
	}
	if goos == "windows" {
		return []string{"-n", strconv.Itoa(count), host}
	}
	return []string{"-c", strconv.Itoa(count), host}
}
