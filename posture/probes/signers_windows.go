//go:build windows

package probes

import (
	"crypto/sha1"
	"encoding/hex"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	crypt32            = windows.NewLazySystemDLL("crypt32.dll")
	procCryptQueryObject = crypt32.NewProc("CryptQueryObject")
)

const (
	certQueryObjectFile          = 1
	certQueryContentFlagAllFlag  = 0x3FFFFFFF
	certQueryFormatFlagAllFlag   = 0xE
)

// signerThumbprints extracts the SHA-1 thumbprints of the certificates
// embedded in path's Authenticode signature, via CryptQueryObject +
// CertEnumCertificatesInStore, matching the original's get_signers on
// Windows.
func signerThumbprints(path string) []string {
	pathPtr, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return nil
	}

	var certStore windows.Handle
	var msg windows.Handle

	ret, _, _ := procCryptQueryObject.Call(
		uintptr(certQueryObjectFile),
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(certQueryContentFlagAllFlag),
		uintptr(certQueryFormatFlagAllFlag),
		0,
		0, 0,
		0,
		uintptr(unsafe.Pointer(&certStore)),
		uintptr(unsafe.Pointer(&msg)),
		0,
	)
	if ret == 0 {
		return nil
	}
	defer windows.CertCloseStore(certStore, 0)

	var thumbprints []string
	var cert *windows.CertContext
	for {
		cert, err = windows.CertEnumCertificatesInStore(certStore, cert)
		if err != nil || cert == nil {
			break
		}
		encoded := unsafe.Slice(cert.EncodedCert, cert.Length)
		sum := sha1.Sum(encoded)
		thumbprints = append(thumbprints, hex.EncodeToString(sum[:]))
	}
	return thumbprints
}
