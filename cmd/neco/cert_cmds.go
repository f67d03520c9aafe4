package main

import (
	"fmt"

	"github.com/lsoc/neco/pkg/security"
	"github.com/lsoc/neco/pkg/settings"
	"github.com/spf13/cobra"
)

var addCertAuxPathsCmd = &cobra.Command{
	Use:   "add_cert_aux_paths",
	Short: "Add an auxiliary mirror path pair for an existing certificate",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		kind, _ := cmd.Flags().GetString("type")
		paths, _ := cmd.Flags().GetStringSlice("paths")

		if len(paths) != 2 {
			return fmt.Errorf("--paths requires exactly two values: <KEY> <CERT>")
		}

		var certKind settings.CertKind
		switch kind {
		case "ca":
			certKind = settings.CertKindCA
		case "main":
			certKind = settings.CertKindMain
		default:
			return fmt.Errorf("--type must be ca or main, got %q", kind)
		}

		store := settings.New(settings.DefaultPath, security.NewMaterializer())
		return store.AppendCertAuxPaths(name, certKind, paths[0], paths[1])
	},
}

func init() {
	addCertAuxPathsCmd.Flags().String("name", "", "Certificate component name")
	addCertAuxPathsCmd.Flags().String("type", "", "ca or main")
	addCertAuxPathsCmd.Flags().StringSlice("paths", nil, "Key path and certificate path, in that order")
	_ = addCertAuxPathsCmd.MarkFlagRequired("name")
	_ = addCertAuxPathsCmd.MarkFlagRequired("type")
	_ = addCertAuxPathsCmd.MarkFlagRequired("paths")
}

var addCertificateCmd = &cobra.Command{
	Use:   "add_certificate",
	Short: "Register a new self-signed certificate",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAddCertificate(cmd, nil)
	},
}

var addCertificateCASignedCmd = &cobra.Command{
	Use:   "ca-signed",
	Short: "Register a new CA-signed certificate, generating the CA too",
	RunE: func(cmd *cobra.Command, args []string) error {
		caDuration, _ := cmd.Flags().GetInt("ca_certificate_duration")
		caExtensions, _ := cmd.Flags().GetString("ca_extensions")
		caSubj, _ := cmd.Flags().GetString("ca_subj")
		caKeyFile, _ := cmd.Flags().GetString("ca_key_file")
		caCertFile, _ := cmd.Flags().GetString("ca_certificate_file")
		caNotEncrypted, _ := cmd.Flags().GetBool("ca_not_encrypted")

		ca := &settings.CACertificate{
			Encrypted:    !caNotEncrypted,
			DurationDays: caDuration,
			Subj:         caSubj,
			Extensions:   caExtensions,
			MainPaths:    settings.PathPair{Key: caKeyFile, Cert: caCertFile},
		}

		return runAddCertificate(cmd, ca)
	},
}

func runAddCertificate(cmd *cobra.Command, ca *settings.CACertificate) error {
	name, _ := cmd.Flags().GetString("name")
	algorithm, _ := cmd.Flags().GetString("algorithm")
	duration, _ := cmd.Flags().GetInt("certificate_duration")
	keyLength, _ := cmd.Flags().GetInt("key_length")
	subj, _ := cmd.Flags().GetString("subj")
	keyFile, _ := cmd.Flags().GetString("key_file")
	certFile, _ := cmd.Flags().GetString("cert_file")
	serviceIPs, _ := cmd.Flags().GetStringSlice("service_ips")
	notEncrypted, _ := cmd.Flags().GetBool("not_encrypted")

	cert := settings.CertificateSettings{
		ComponentName: name,
		Algorithm:     algorithm,
		CACertificate: ca,
		MainCertificate: settings.MainCertificate{
			Encrypted:    !notEncrypted,
			DurationDays: duration,
			Subj:         subj,
			KeyLen:       keyLength,
			ServiceIPs:   serviceIPs,
			MainPaths:    settings.PathPair{Key: keyFile, Cert: certFile},
		},
	}

	store := settings.New(settings.DefaultPath, security.NewMaterializer())
	if err := store.AddCertificate(cert); err != nil {
		return err
	}

	kind := "ca-signed"
	if ca == nil {
		kind = "self-signed"
	}
	fmt.Printf("Certificate %q added (%s, algorithm=%s)\n", name, kind, algorithm)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{addCertificateCmd, addCertificateCASignedCmd} {
		c.Flags().String("name", "", "Certificate component name")
		c.Flags().String("algorithm", "", "Key algorithm")
		c.Flags().Int("certificate_duration", 0, "Leaf certificate validity, in days")
		c.Flags().Int("key_length", 0, "Key length in bits")
		c.Flags().String("subj", "", "Certificate subject")
		c.Flags().String("key_file", "", "Leaf private key output path")
		c.Flags().String("cert_file", "", "Leaf certificate output path")
		c.Flags().StringSlice("service_ips", nil, "Subject alternative name IPs")
		c.Flags().Bool("not_encrypted", false, "Do not passphrase-protect the leaf private key")
		_ = c.MarkFlagRequired("name")
		_ = c.MarkFlagRequired("algorithm")
		_ = c.MarkFlagRequired("certificate_duration")
		_ = c.MarkFlagRequired("key_length")
		_ = c.MarkFlagRequired("subj")
		_ = c.MarkFlagRequired("key_file")
		_ = c.MarkFlagRequired("cert_file")
	}

	addCertificateCASignedCmd.Flags().Int("ca_certificate_duration", 0, "CA certificate validity, in days")
	addCertificateCASignedCmd.Flags().String("ca_extensions", "", "openssl config extensions section for the CA cert")
	addCertificateCASignedCmd.Flags().String("ca_subj", "", "CA certificate subject")
	addCertificateCASignedCmd.Flags().String("ca_key_file", "", "CA private key output path")
	addCertificateCASignedCmd.Flags().String("ca_certificate_file", "", "CA certificate output path")
	addCertificateCASignedCmd.Flags().Bool("ca_not_encrypted", false, "Do not passphrase-protect the CA private key")
	_ = addCertificateCASignedCmd.MarkFlagRequired("ca_certificate_duration")
	_ = addCertificateCASignedCmd.MarkFlagRequired("ca_key_file")
	_ = addCertificateCASignedCmd.MarkFlagRequired("ca_certificate_file")

	addCertificateCmd.AddCommand(addCertificateCASignedCmd)
}
