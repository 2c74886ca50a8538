package sockets

import (
	"net/netip"

	lru "github.com/hashicorp/golang-lru/v2"
)

const hostCacheSize = 1024

type hostKey struct {
	family Family
	ip     [16]byte
}

var hostCache = mustHostCache()

func mustHostCache() *lru.Cache[hostKey, string] {
	c, err := lru.New[hostKey, string](hostCacheSize)
	if err != nil {
		panic(err)
	}
	return c
}

func renderHost(family Family, ip [16]byte) string {
	key := hostKey{family: family, ip: ip}
	if s, ok := hostCache.Get(key); ok {
		return s
	}
	var s string
	if family == FamilyINET {
		s = netip.AddrFrom4([4]byte(ip[:4])).String()
	} else {
		s = netip.AddrFrom16(ip).String()
	}
	hostCache.Add(key, s)
	return s
}
