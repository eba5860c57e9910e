package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/coronarchive/tekexport/archive"
	"github.com/coronarchive/tekexport/assemble"
	"github.com/coronarchive/tekexport/cidutil"
	"github.com/coronarchive/tekexport/export"
	"github.com/coronarchive/tekexport/keys"
	"github.com/coronarchive/tekexport/verify"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "dump":
		return cmdDump(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "assemble":
		return cmdAssemble(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "tekexport: exposure-key export codec CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tekexport dump <archive.zip>")
	fmt.Fprintln(w, "  tekexport verify --keys <dir> [--policy any|all] <archive.zip>")
	fmt.Fprintln(w, "  tekexport assemble --keys <dir> [--policy any|all] <archive.zip> [<archive.zip> ...]")
	fmt.Fprintln(w, "  tekexport key init --id <key-id> --version <v> [--force]")
	fmt.Fprintln(w, "  tekexport key list")
	fmt.Fprintln(w, "  tekexport key export --id <key-id> --version <v>")
	fmt.Fprintln(w, "  tekexport cid <archive.zip>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - archives are zip files holding export.bin + export.sig")
	fmt.Fprintln(w, "  - signing keys live under ~/.tekexport/keys/<key-id> (0600 PEM files)")
	fmt.Fprintln(w, "  - verify/assemble trust the public halves of every stored key")
	fmt.Fprintln(w, "  - dump prints keys without verifying; pair it with verify")
}

func readArchive(path string, errOut io.Writer) (*archive.Archive, []byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read archive: %v\n", err)
		return nil, nil, false
	}
	a, err := archive.Read(data)
	if err != nil {
		fmt.Fprintf(errOut, "invalid archive: %v\n", err)
		return nil, nil, false
	}
	return a, data, true
}

func cmdDump(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tekexport dump <archive.zip>")
		return 2
	}
	a, _, ok := readArchive(fs.Arg(0), errOut)
	if !ok {
		return 1
	}
	e, err := export.Decode(a.ExportBytes)
	if err != nil {
		fmt.Fprintf(errOut, "decode export: %v\n", err)
		return 1
	}

	start := time.Unix(int64(e.StartTimestamp), 0).UTC()
	end := time.Unix(int64(e.EndTimestamp), 0).UTC()
	fmt.Fprintf(out, "region=%s batch=%d/%d window=%s..%s keys=%d\n",
		e.Region, e.BatchNum, e.BatchSize,
		start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"), len(e.Keys))

	for i := range e.Keys {
		k := &e.Keys[i]
		validFrom := time.Unix(int64(k.RollingStartIntervalNumber)*600, 0).UTC()
		line := fmt.Sprintf("%s %s level=%d",
			cidutil.ShortFingerprint(k.KeyData),
			validFrom.Format("Mon 2006.01.02 15:04"),
			k.TransmissionRiskLevel)
		if k.RollingPeriod != export.DefaultRollingPeriod {
			line += fmt.Sprintf(" period=%dmin", int64(k.RollingPeriod)*10)
		}
		fmt.Fprintln(out, line)
	}
	return 0
}

func openRegistry(dir string, errOut io.Writer) (*verify.StaticRegistry, bool) {
	ks, err := keys.CreateKeyStore(dir)
	if err != nil {
		fmt.Fprintf(errOut, "open key store: %v\n", err)
		return nil, false
	}
	reg, err := ks.Registry()
	if err != nil {
		fmt.Fprintf(errOut, "load key registry: %v\n", err)
		return nil, false
	}
	return reg, true
}

func parsePolicy(s string, errOut io.Writer) (assemble.TrustPolicy, bool) {
	switch s {
	case "any":
		return assemble.TrustAnySignature, true
	case "all":
		return assemble.TrustAllSignatures, true
	default:
		fmt.Fprintf(errOut, "unknown trust policy %q (want any or all)\n", s)
		return 0, false
	}
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	keysDir := fs.String("keys", "", "key store directory (default ~/.tekexport/keys)")
	policyName := fs.String("policy", "any", "trust policy: any or all")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tekexport verify --keys <dir> [--policy any|all] <archive.zip>")
		return 2
	}
	reg, ok := openRegistry(*keysDir, errOut)
	if !ok {
		return 1
	}
	policy, ok := parsePolicy(*policyName, errOut)
	if !ok {
		return 2
	}
	a, _, ok := readArchive(fs.Arg(0), errOut)
	if !ok {
		return 1
	}

	batch := assemble.Batch{ExportBytes: a.ExportBytes, SignatureBytes: a.SignatureBytes}
	if _, err := assemble.Assemble([]assemble.Batch{batch}, reg, policy); err != nil {
		fmt.Fprintf(errOut, "verification failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, verify.ResultValid)
	return 0
}

func cmdAssemble(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("assemble", flag.ContinueOnError)
	fs.SetOutput(errOut)
	keysDir := fs.String("keys", "", "key store directory (default ~/.tekexport/keys)")
	policyName := fs.String("policy", "any", "trust policy: any or all")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: tekexport assemble --keys <dir> [--policy any|all] <archive.zip> [...]")
		return 2
	}
	reg, ok := openRegistry(*keysDir, errOut)
	if !ok {
		return 1
	}
	policy, ok := parsePolicy(*policyName, errOut)
	if !ok {
		return 2
	}

	var batches []assemble.Batch
	for _, path := range fs.Args() {
		a, _, ok := readArchive(path, errOut)
		if !ok {
			return 1
		}
		batches = append(batches, assemble.Batch{ExportBytes: a.ExportBytes, SignatureBytes: a.SignatureBytes})
	}

	set, err := assemble.Assemble(batches, reg, policy)
	if err != nil {
		fmt.Fprintf(errOut, "assembly failed: %v\n", err)
		return 1
	}
	start := time.Unix(int64(set.StartTimestamp), 0).UTC()
	end := time.Unix(int64(set.EndTimestamp), 0).UTC()
	fmt.Fprintf(out, "region=%s batches=%d window=%s..%s keys=%d\n",
		set.Region, set.BatchSize,
		start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"), len(set.Keys))
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: tekexport key <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: init, list, export")
		return 2
	}
	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("key init", flag.ContinueOnError)
		fs.SetOutput(errOut)
		dir := fs.String("dir", "", "key store directory (default ~/.tekexport/keys)")
		id := fs.String("id", "", "verification key id")
		version := fs.String("version", "1", "verification key version")
		force := fs.Bool("force", false, "overwrite an existing key")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *id == "" {
			fmt.Fprintln(errOut, "usage: tekexport key init --id <key-id> --version <v> [--force]")
			return 2
		}
		ks, err := keys.CreateKeyStore(*dir)
		if err != nil {
			fmt.Fprintf(errOut, "open key store: %v\n", err)
			return 1
		}
		_, path, err := ks.Generate(*id, *version, *force)
		if err != nil {
			fmt.Fprintf(errOut, "generate key: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, path)
		return 0
	case "list":
		fs := flag.NewFlagSet("key list", flag.ContinueOnError)
		fs.SetOutput(errOut)
		dir := fs.String("dir", "", "key store directory (default ~/.tekexport/keys)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		ks, err := keys.CreateKeyStore(*dir)
		if err != nil {
			fmt.Fprintf(errOut, "open key store: %v\n", err)
			return 1
		}
		entries, err := ks.ListKeys()
		if err != nil {
			fmt.Fprintf(errOut, "list keys: %v\n", err)
			return 1
		}
		for _, entry := range entries {
			for _, v := range entry.Versions {
				fmt.Fprintf(out, "%s\tv%s\n", entry.KeyID, v)
			}
		}
		return 0
	case "export":
		fs := flag.NewFlagSet("key export", flag.ContinueOnError)
		fs.SetOutput(errOut)
		dir := fs.String("dir", "", "key store directory (default ~/.tekexport/keys)")
		id := fs.String("id", "", "verification key id")
		version := fs.String("version", "1", "verification key version")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *id == "" {
			fmt.Fprintln(errOut, "usage: tekexport key export --id <key-id> --version <v>")
			return 2
		}
		ks, err := keys.CreateKeyStore(*dir)
		if err != nil {
			fmt.Fprintf(errOut, "open key store: %v\n", err)
			return 1
		}
		pemStr, err := ks.PublicKeyPEM(*id, *version)
		if err != nil {
			fmt.Fprintf(errOut, "export key: %v\n", err)
			return 1
		}
		fmt.Fprint(out, pemStr)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n", args[0])
		return 2
	}
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tekexport cid <archive.zip>")
		return 2
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read archive: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, archive.CID(data))
	return 0
}
