package services

import (
	"encoding/hex"
	"strings"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/alphabatem/common/context"
	"github.com/mssola/useragent"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

const FINGERPRINT_SVC = "fingerprint_svc"

// fingerprintDomainKey separates device fingerprints from any other keyed
// BLAKE3 digest. Changing it changes every stored fingerprint.
var fingerprintDomainKey = [32]byte{
	'a', 'k', 'a', 'd', 'e', 'm', 'o', '.', 's', 'e', 's', 's', 'i', 'o', 'n', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', 0, 0, 0, 0, 0,
}

// FingerprintService derives the device identity used for session
// exclusivity. The client IP never feeds the fingerprint; it is only kept as
// a keyed audit hash.
type FingerprintService struct {
	context.DefaultService

	ipHashKey []byte
}

func (svc FingerprintService) Id() string {
	return FINGERPRINT_SVC
}

func (svc *FingerprintService) Configure(ctx *context.Context) error {
	svc.SetIPHashSecret(shared.GetEnv("IP_HASH_SECRET", ""))
	return svc.DefaultService.Configure(ctx)
}

func (svc *FingerprintService) Start() error {
	return nil
}

// SetIPHashSecret keys the audit hash. Secrets longer than a blake2b key are
// compressed first.
func (svc *FingerprintService) SetIPHashSecret(secret string) {
	if secret == "" {
		svc.ipHashKey = nil
		return
	}
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	svc.ipHashKey = key
}

// Resolve parses userAgent and returns the device description together with
// its fingerprint. Identical user agents always map to the same fingerprint.
func (svc *FingerprintService) Resolve(userAgent, clientIP string) dto.DeviceInfo {
	ua := useragent.New(userAgent)
	browserName, browserVersion := ua.Browser()
	osInfo := ua.OSInfo()

	info := dto.DeviceInfo{
		UserAgent:      userAgent,
		Browser:        browserName,
		BrowserVersion: browserVersion,
		OS:             osInfo.Name,
		OSVersion:      osInfo.Version,
		ClientIP:       clientIP,
	}
	if info.OS == "" {
		info.OS = strings.TrimSpace(ua.OS())
	}

	info.Fingerprint = Fingerprint(userAgent, info.Browser, info.BrowserVersion, info.OS, info.OSVersion)
	info.IPHash = svc.HashIP(clientIP)

	return info
}

// Fingerprint hashes the ordered device attributes. A zero byte separates the
// fields so that shifting characters between them changes the digest.
func Fingerprint(userAgent, browserName, browserVersion, osName, osVersion string) string {
	h, _ := blake3.NewKeyed(fingerprintDomainKey[:])
	for i, part := range []string{userAgent, browserName, browserVersion, osName, osVersion} {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashIP returns a keyed digest of ip for audit, or "" when ip is empty.
func (svc *FingerprintService) HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	h, err := blake2b.New256(svc.ipHashKey)
	if err != nil {
		return ""
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}
