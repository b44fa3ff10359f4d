package mindroidplugin

import (
	"fmt"

	mnet "github.com/geoffjay/mindroid/net"
)

// tcpAuthority parses rawURI and returns its authority, rejecting any scheme
// other than "tcp" — the only transport Mindroid.cpp's Server/Client
// support.
func tcpAuthority(rawURI string) (string, error) {
	u, err := mnet.Parse(rawURI)
	if err != nil {
		return "", err
	}
	if u.Scheme != "tcp" {
		return "", fmt.Errorf("mindroidplugin: invalid uri scheme %q, expected tcp", u.Scheme)
	}
	return u.Authority, nil
}
