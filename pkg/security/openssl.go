// Package security implements certificate lifecycle management (component
// D/E of the spec) and the digest/permission helpers (component C). Every
// certificate or key is produced by shelling out to openssl via
// pkg/executil — never by an in-process crypto/x509 stack — because the
// spec treats openssl as part of the external contract the agent depends
// on, not something a Go library should replace.
package security

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lsoc/neco/pkg/executil"
	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/settings"
	"github.com/rs/zerolog"
)

// GenerateCA runs `openssl req -new -x509 ...` to produce a root/intermediate
// CA key and certificate, then mirrors the result to every non-empty
// auxiliary path pair. When justPopulateAux is true, generation is skipped
// and only the aux-path mirroring runs (used by "populate aux paths only"
// mode, e.g. after settings.AppendCertAuxPaths declares a new mirror).
//
// Returns the newly generated passphrase, or "" when the CA key is not
// encrypted or justPopulateAux is true.
func GenerateCA(ctx context.Context, cfg *settings.CACertificate, justPopulateAux bool) (string, error) {
	logger := log.WithComponent("security")
	var passphrase string

	if !justPopulateAux {
		extensions := cfg.Extensions
		if extensions == "" {
			extensions = settings.DefaultCAExtensions
		}

		args := []string{
			"req", "-new", "-x509",
			"-days", strconv.Itoa(cfg.DurationDays),
			"-extensions", extensions,
			"-keyout", cfg.MainPaths.Key,
			"-out", cfg.MainPaths.Cert,
			"-subj", cfg.Subj,
		}

		if cfg.Encrypted {
			pass, err := GeneratePassphrase()
			if err != nil {
				return "", err
			}
			passphrase = pass
			args = append(args, "-passout", "pass:"+pass)
		} else {
			args = append(args, "-nodes")
		}

		if err := runOpenSSL(ctx, logger, args); err != nil {
			return "", fmt.Errorf("generate CA: %w", err)
		}
	}

	if err := mirrorToAuxPaths(cfg.MainPaths, cfg.AuxiliaryPaths); err != nil {
		return "", err
	}

	return passphrase, nil
}

// GenerateCertificate produces a leaf certificate for cert, either
// self-signed (cert.CACertificate == nil) or CA-signed, then mirrors the
// result to every non-empty auxiliary path pair. When justPopulateAux is
// true, generation is skipped and only the mirroring runs.
//
// Returns the newly generated leaf passphrase, or "" when the leaf key is
// not encrypted or justPopulateAux is true.
func GenerateCertificate(ctx context.Context, cert settings.CertificateSettings, justPopulateAux bool) (string, error) {
	logger := log.WithComponent("security")
	var passphrase string

	if !justPopulateAux {
		main := cert.MainCertificate

		if cert.CACertificate == nil {
			// Self-signed: one shot with openssl req.
			args := []string{
				"req", "-newkey", cert.Algorithm,
			}
			if !main.Encrypted {
				args = append(args, "-nodes")
			}
			args = append(args,
				"-keyout", main.MainPaths.Key,
				"-x509",
				"-days", strconv.Itoa(main.DurationDays),
				"-out", main.MainPaths.Cert,
				"-subj", main.Subj,
			)
			if main.Encrypted {
				pass, err := GeneratePassphrase()
				if err != nil {
					return "", err
				}
				passphrase = pass
				args = append(args, "-passout", "pass:"+pass)
			}

			if err := runOpenSSL(ctx, logger, args); err != nil {
				return "", fmt.Errorf("generate self-signed certificate for %s: %w", cert.ComponentName, err)
			}
		} else {
			// CA-signed: generate the leaf key, then sign it with the CA.
			if main.KeyLen <= 0 {
				return "", fmt.Errorf("generate certificate for %s: invalid key_len %d", cert.ComponentName, main.KeyLen)
			}

			genrsaArgs := []string{"genrsa"}
			if main.Encrypted {
				genrsaArgs = append(genrsaArgs, "-aes256")
			}
			genrsaArgs = append(genrsaArgs, "-out", main.MainPaths.Key)

			if main.Encrypted {
				pass, err := GeneratePassphrase()
				if err != nil {
					return "", err
				}
				passphrase = pass
				genrsaArgs = append(genrsaArgs, "-passout", "pass:"+pass)
			}
			genrsaArgs = append(genrsaArgs, strconv.Itoa(main.KeyLen))

			if err := runOpenSSL(ctx, logger, genrsaArgs); err != nil {
				return "", fmt.Errorf("generate key for %s: %w", cert.ComponentName, err)
			}

			if err := genCSRSignWithCA(ctx, cert, passphrase); err != nil {
				return "", err
			}
		}
	}

	if err := mirrorToAuxPaths(cert.MainCertificate.MainPaths, cert.MainCertificate.AuxiliaryPaths); err != nil {
		return "", err
	}

	return passphrase, nil
}

// genCSRSignWithCA signs cert's leaf key with the configured CA: a CSR is
// generated from the leaf key (decrypted with leafPassphrase if the leaf key
// is encrypted), then signed with the CA's key (decrypted with the CA's own
// in-memory passphrase if the CA is encrypted).
func genCSRSignWithCA(ctx context.Context, cert settings.CertificateSettings, leafPassphrase string) error {
	logger := log.WithComponent("security")
	ca := cert.CACertificate
	main := cert.MainCertificate

	csrPath, err := csrPathFor(main.MainPaths.Key)
	if err != nil {
		return fmt.Errorf("sign certificate for %s: %w", cert.ComponentName, err)
	}

	reqArgs := []string{"req", "-out", csrPath, "-key", main.MainPaths.Key, "-new", "-subj", main.Subj}
	if main.Encrypted {
		reqArgs = append(reqArgs, "-passin", "pass:"+leafPassphrase)
	}
	if err := runOpenSSL(ctx, logger, reqArgs); err != nil {
		return fmt.Errorf("generate CSR for %s: %w", cert.ComponentName, err)
	}

	x509Args := []string{
		"x509", "-req",
		"-in", csrPath,
		"-CA", ca.MainPaths.Cert,
		"-CAkey", ca.MainPaths.Key,
		"-CAcreateserial",
		"-out", main.MainPaths.Cert,
		"-days", strconv.Itoa(main.DurationDays),
	}
	if ca.Encrypted {
		x509Args = append(x509Args, "-passin", "pass:"+ca.Passphrase)
	}

	var extFile string
	if len(main.ServiceIPs) > 0 {
		f, err := os.CreateTemp("", "neco-san-*.cnf")
		if err != nil {
			return fmt.Errorf("write SAN extfile for %s: %w", cert.ComponentName, err)
		}
		extFile = f.Name()
		// SAN entries are caller-formed (IP:... or DNS:...) and used verbatim.
		contents := "\n[SAN]\nsubjectAltName=" + strings.Join(main.ServiceIPs, ",")
		if _, err := f.WriteString(contents); err != nil {
			f.Close()
			os.Remove(extFile)
			return fmt.Errorf("write SAN extfile for %s: %w", cert.ComponentName, err)
		}
		f.Close()
		defer os.Remove(extFile)

		x509Args = append(x509Args, "-extfile", extFile, "-extensions", "SAN")
	}

	if err := runOpenSSL(ctx, logger, x509Args); err != nil {
		return fmt.Errorf("sign certificate for %s: %w", cert.ComponentName, err)
	}

	os.Remove(csrPath)
	return nil
}

// GenCSRSignWithKey signs a new CSR against its own signing key (self-signed
// renewal path): used by the watchdog to reissue a self-signed leaf, and by
// the watchdog to reissue a CA certificate with its existing key.
func GenCSRSignWithKey(ctx context.Context, componentName, signingKeyPath string, signingKeyEncrypted bool, subj, passphrase string, durationDays int, outCertPath string) error {
	logger := log.WithComponent("security")

	csrPath, err := csrPathFor(signingKeyPath)
	if err != nil {
		return fmt.Errorf("renew certificate for %s: %w", componentName, err)
	}

	reqArgs := []string{"req", "-out", csrPath, "-key", signingKeyPath, "-new", "-subj", subj}
	if signingKeyEncrypted {
		reqArgs = append(reqArgs, "-passin", "pass:"+passphrase)
	}
	if err := runOpenSSL(ctx, logger, reqArgs); err != nil {
		return fmt.Errorf("generate renewal CSR for %s: %w", componentName, err)
	}

	x509Args := []string{
		"x509", "-req",
		"-signkey", signingKeyPath,
		"-days", strconv.Itoa(durationDays),
		"-in", csrPath,
		"-out", outCertPath,
	}
	if err := runOpenSSL(ctx, logger, x509Args); err != nil {
		return fmt.Errorf("sign renewal certificate for %s: %w", componentName, err)
	}

	os.Remove(csrPath)
	return nil
}

// csrPathFor derives a CSR path from a key path by splitting once on the
// first '.' and appending ".csr". This misbehaves for multi-dot paths like
// /etc/ca.v2.key (it would yield /etc/ca.csr, not /etc/ca.v2.csr) — that is
// the behavior being preserved here, not a bug to silently fix. Key paths in
// practice are single-extension (name.key), so this has not been observed
// to bite in the fleet.
func csrPathFor(keyPath string) (string, error) {
	idx := strings.Index(keyPath, ".")
	if idx < 0 {
		return "", fmt.Errorf("key path %q has no extension to derive a CSR path from", keyPath)
	}
	return keyPath[:idx] + ".csr", nil
}

// runOpenSSL invokes openssl with args. A non-zero exit with stderr output is
// logged but does not fail the operation — openssl routinely writes progress
// to stderr on success. Only a failure to spawn the process at all surfaces
// as an error.
func runOpenSSL(ctx context.Context, logger zerolog.Logger, args []string) error {
	res, err := executil.Run(ctx, "openssl", args...)
	if err != nil {
		return fmt.Errorf("spawn openssl %s: %w", args[0], err)
	}
	if res.Stderr != "" {
		logger.Debug().
			Strs("argv", executil.Redact(args)).
			Str("stderr", res.Stderr).
			Msg("openssl wrote to stderr")
	}
	return nil
}

// mirrorToAuxPaths copies main's key and cert to every non-empty auxiliary
// path pair.
func mirrorToAuxPaths(main settings.PathPair, aux []settings.PathPair) error {
	for _, pair := range aux {
		if pair.Key == "" && pair.Cert == "" {
			continue
		}
		if err := copyFile(main.Key, pair.Key); err != nil {
			return fmt.Errorf("mirror key to %s: %w", pair.Key, err)
		}
		if err := copyFile(main.Cert, pair.Cert); err != nil {
			return fmt.Errorf("mirror cert to %s: %w", pair.Cert, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	return out.Close()
}
