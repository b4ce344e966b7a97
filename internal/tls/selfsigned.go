package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// CertValidity is how long a generated development certificate lasts.
const CertValidity = 365 * 24 * time.Hour

// GenerateSelfSignedCert generates a new ECDSA certificate and corresponding
// private key suitable for use with a development TLS server. The cert will
// be valid for the provided hostnames and IPs and will be written to the
// provided file paths in PEM format. Existing files will be overwritten.
func GenerateSelfSignedCert(fs afero.Fs, certPath, keyPath string, hosts []string) error {
	if len(hosts) == 0 {
		return fmt.Errorf("at least one hostname is required")
	}
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}

	notBefore := time.Now()
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return err
	}

	tmpl := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Binderflow Dev"},
			CommonName:   hosts[0],
		},
		NotBefore: notBefore,
		NotAfter:  notBefore.Add(CertValidity),
		KeyUsage:  x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		return err
	}
	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return err
	}

	if err := writePEM(fs, certPath, "CERTIFICATE", derBytes, 0o644); err != nil {
		return err
	}
	return writePEM(fs, keyPath, "EC PRIVATE KEY", keyBytes, 0o600)
}

// EnsureCert generates a certificate pair unless both files already exist.
// It reports whether new files were written.
func EnsureCert(fs afero.Fs, certPath, keyPath string, hosts []string) (bool, error) {
	certOK, err := afero.Exists(fs, certPath)
	if err != nil {
		return false, err
	}
	keyOK, err := afero.Exists(fs, keyPath)
	if err != nil {
		return false, err
	}
	if certOK && keyOK {
		return false, nil
	}
	if err := GenerateSelfSignedCert(fs, certPath, keyPath, hosts); err != nil {
		return false, err
	}
	return true, nil
}

func writePEM(fs afero.Fs, path, blockType string, der []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	return afero.WriteFile(fs, path, data, perm)
}
