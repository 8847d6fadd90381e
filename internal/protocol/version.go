package protocol

import (
	"strconv"
	"strings"
)

// CompareVersions compares dot separated versions segment by segment, numerically where both
// segments are integers and lexically otherwise. Missing segments count as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		x, y := "0", "0"
		if i < len(as) && as[i] != "" {
			x = as[i]
		}
		if i < len(bs) && bs[i] != "" {
			y = bs[i]
		}
		if c := compareSegment(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(x, y string) int {
	xi, errX := strconv.ParseInt(x, 10, 64)
	yi, errY := strconv.ParseInt(y, 10, 64)
	if errX == nil && errY == nil {
		switch {
		case xi < yi:
			return -1
		case xi > yi:
			return 1
		}
		return 0
	}
	return strings.Compare(x, y)
}

// VersionMismatchText is the notice sent before closing a client with the wrong version.
func VersionMismatchText(client, server string) string {
	if CompareVersions(client, server) > 0 {
		return "You have too new version!"
	}
	return "You have too old version!"
}
