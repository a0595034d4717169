package version

import (
	_ "embed" // for go:embed
	"fmt"
	"strconv"
	"strings"
)

// VERSION holds the version of educonsent
//
//go:embed VERSION
var VERSION string

// Version segments
var (
	MAJOR int
	MINOR int
	FIX   int
	PRE   int
)

func init() {
	VERSION = strings.TrimSpace(VERSION)
	MAJOR, MINOR, FIX, PRE = parse(VERSION)
}

func parse(v string) (major, minor, fix, pre int) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) != 3 {
		return
	}
	major, _ = strconv.Atoi(parts[0])
	minor, _ = strconv.Atoi(parts[1])
	ps := strings.SplitN(parts[2], "-", 2)
	fix, _ = strconv.Atoi(ps[0])
	if len(ps) > 1 {
		pre, _ = strconv.Atoi(strings.TrimPrefix(ps[1], "pr"))
	}
	return
}

// UserAgent is the user agent announced to the json-rpc endpoint
func UserAgent() string {
	return fmt.Sprintf("educonsent/%s", VERSION)
}
