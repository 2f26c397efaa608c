// Command keygen writes an RSA key pair for signing session tokens.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/spec-kit/blog-api/internal/auth"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		bits       int
		privateOut string
		publicOut  string
		force      bool
	)

	flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	flagSet.IntVar(&bits, "bits", 2048, "RSA modulus size in bits")
	flagSet.StringVar(&privateOut, "private-out", "jwt_private.pem", "path for the PKCS#8 private key")
	flagSet.StringVar(&publicOut, "public-out", "jwt_public.pem", "path for the PKIX public key")
	flagSet.BoolVarP(&force, "force", "f", false, "overwrite existing files")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	keys, err := auth.GenerateKeyPair(bits)
	if err != nil {
		return err
	}
	privatePEM, publicPEM, err := keys.EncodePEM()
	if err != nil {
		return err
	}

	if err := writeKey(privateOut, privatePEM, 0o600, force); err != nil {
		return err
	}
	if err := writeKey(publicOut, publicPEM, 0o644, force); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "AUTH_PRIVATE_KEY_PATH=%s\nAUTH_PUBLIC_KEY_PATH=%s\n", privateOut, publicOut)
	return nil
}

func writeKey(path string, data []byte, mode os.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
