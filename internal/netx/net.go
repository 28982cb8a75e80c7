// Package netx finds the address under which the server is reachable on
// the local network.
package netx

import (
	"errors"
	"net"
)

// ErrNoLANAddress is returned when no interface has a private IPv4 address.
var ErrNoLANAddress = errors.New("no private IPv4 address found")

// interfaceAddrs is a seam for tests.
var interfaceAddrs = net.InterfaceAddrs

// LANAddress returns the first private, non-loopback IPv4 address of the
// host.
func LANAddress() (net.IP, error) {
	addrs, err := interfaceAddrs()
	if err != nil {
		return nil, err
	}

	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && ip4.IsPrivate() && !ip4.IsLoopback() {
			return ip4, nil
		}
	}
	return nil, ErrNoLANAddress
}

// AdvertisedURL turns a listen address such as ":8000" into a URL a client
// on the LAN can open. An explicit host in listenAddr is kept.
func AdvertisedURL(listenAddr string, tls bool) (string, error) {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "", err
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		ip, err := LANAddress()
		if err != nil {
			return "", err
		}
		host = ip.String()
	}

	scheme := "http"
	if tls {
		scheme = "https"
	}

	return scheme + "://" + net.JoinHostPort(host, port), nil
}
