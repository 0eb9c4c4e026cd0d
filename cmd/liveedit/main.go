package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/daimatz/liveedit/pkg/classfile"
	"github.com/daimatz/liveedit/pkg/compat"
	"github.com/daimatz/liveedit/pkg/config"
	"github.com/daimatz/liveedit/pkg/host/fakehost"
	"github.com/daimatz/liveedit/pkg/interp"
	"github.com/daimatz/liveedit/pkg/liveedit"
)

const usage = `Usage:
  liveedit [-config file] [-v n] run [-proxy] [-interfaces a,b] <patch.class> <key> [args...]
  liveedit [-config file] [-v n] check [-classpath p] [-format json|cbor] <patch.class>

A key is "owner->name(desc)" or just "name(desc)" for a method of the patch.
`

// errChanges makes check exit 1 without printing an error.
var errChanges = errors.New("incompatible changes found")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("liveedit", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "configuration file (default: nearest "+config.FileName+")")
	verbosity := global.Int("v", -1, "log verbosity (overrides the configuration)")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *verbosity >= 0 {
		cfg.Logging.Verbosity = *verbosity
	}
	var logPath *string
	if cfg.Logging.Path != "" {
		logPath = &cfg.Logging.Path
	}
	commonlog.Configure(cfg.Logging.Verbosity, logPath)

	rest := global.Args()
	switch rest[0] {
	case "run":
		err = runCommand(cfg, rest[1:], stdout, stderr)
	case "check":
		err = checkCommand(cfg, rest[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		global.Usage()
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errChanges):
		return 1
	case errors.Is(err, flag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FindAndLoad(".")
}

func readPatch(path string) ([]byte, *classfile.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	def, err := classfile.ParseDefinition(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return data, def, nil
}

func runCommand(cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	proxy := fs.Bool("proxy", false, "register the patch as a proxy class")
	interfaces := fs.String("interfaces", "", "comma-separated interfaces the proxy implements")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}

	data, def, err := readPatch(fs.Arg(0))
	if err != nil {
		return err
	}
	key := fs.Arg(1)
	if !strings.Contains(key, "->") {
		key = def.Name + "->" + key
	}

	h := fakehost.New(cfg.Runtime.APILevel)
	h.Stdout = stdout
	var ifaces []string
	if *interfaces != "" {
		ifaces = strings.Split(*interfaces, ",")
	}
	if *proxy {
		declareInterfaces(h, ifaces, def.Interfaces)
	}

	ctx := liveedit.NewContext(h, cfg.Options()...)
	cls, err := ctx.RegisterPatch(def.Name, data, *proxy, ifaces)
	if err != nil {
		return err
	}

	_, method, err := liveedit.ParseMethodKey(key)
	if err != nil {
		return err
	}
	m, ok := def.Method(method)
	if !ok {
		return fmt.Errorf("%s: %w", key, liveedit.ErrNoSuchMethod)
	}
	hostArgs, err := parseArgs(m.Type.Params, fs.Args()[2:])
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	var recv any
	if !m.IsStatic() {
		if *proxy {
			v, err := cls.InstantiateProxy()
			if err != nil {
				return err
			}
			recv = v.Ref
		} else {
			recv = fakehost.NewObject(def.Name)
		}
	}

	ret, err := ctx.Dispatch(key, recv, hostArgs)
	if err != nil {
		return err
	}
	if ret.Kind != interp.KindVoid {
		fmt.Fprintln(stdout, h.Stringify(ret.ToHost(m.Type.Return)))
	}
	return nil
}

// declareInterfaces defines marker interfaces for names the fake host does
// not know, so proxies can be created for arbitrary patches.
func declareInterfaces(h *fakehost.Host, lists ...[]string) {
	for _, list := range lists {
		for _, name := range list {
			name = classfile.InternalName(name)
			if _, err := h.ResolveType(name); err == nil {
				continue
			}
			h.Define(&fakehost.Class{ClassName: name, Interface: true, Abstract: true})
		}
	}
}

// parseArgs converts command-line strings to host values for the given
// parameter descriptors.
func parseArgs(params []string, raw []string) ([]any, error) {
	if len(raw) != len(params) {
		return nil, fmt.Errorf("got %d arguments, want %d", len(raw), len(params))
	}
	out := make([]any, len(raw))
	for i, s := range raw {
		x, err := parseArg(params[i], s)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = x
	}
	return out, nil
}

func parseArg(desc, s string) (any, error) {
	switch desc {
	case "Z":
		return strconv.ParseBool(s)
	case "B":
		n, err := strconv.ParseInt(s, 0, 8)
		return int8(n), err
	case "C":
		r := []rune(s)
		if len(r) != 1 {
			return nil, fmt.Errorf("%q is not a single character", s)
		}
		return utf16.Encode(r)[0], nil
	case "S":
		n, err := strconv.ParseInt(s, 0, 16)
		return int16(n), err
	case "I":
		n, err := strconv.ParseInt(s, 0, 32)
		return int32(n), err
	case "J":
		return strconv.ParseInt(s, 0, 64)
	case "F":
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	case "D":
		return strconv.ParseFloat(s, 64)
	case "Ljava/lang/String;", "Ljava/lang/Object;", "Ljava/lang/CharSequence;":
		return s, nil
	}
	if s == "null" {
		return nil, nil
	}
	return nil, fmt.Errorf("cannot pass %q as %s", s, desc)
}

func checkCommand(cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	classpath := fs.String("classpath", "", "directories, jars and jmods holding the original classes")
	format := fs.String("format", "json", "report format: json or cbor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}
	if *format != "json" && *format != "cbor" {
		return fmt.Errorf("unknown format %q", *format)
	}

	_, def, err := readPatch(fs.Arg(0))
	if err != nil {
		return err
	}
	list := *classpath
	if list == "" {
		list = defaultClasspath()
	}
	v := compat.Validator{Types: fakehost.ParseClasspath(list)}
	report := v.Check(def)

	var out []byte
	if *format == "cbor" {
		out, err = compat.MarshalCBOR(report)
	} else {
		out, err = compat.MarshalJSON(report)
		out = append(out, '\n')
	}
	if err != nil {
		return err
	}
	if _, err := stdout.Write(out); err != nil {
		return err
	}
	if !report.Compatible() {
		return errChanges
	}
	return nil
}

// defaultClasspath is $LIVEEDIT_CLASSPATH, or the java.base jmod of the
// local JDK when that is unset.
func defaultClasspath() string {
	if env := os.Getenv("LIVEEDIT_CLASSPATH"); env != "" {
		return env
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
