package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-tty"
	yaml "gopkg.in/yaml.v2"

	"github.com/ziyangfu/ostemp-sub000/kernel"
	"github.com/ziyangfu/ostemp-sub000/klog"
	"github.com/ziyangfu/ostemp-sub000/trap"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	stepColor = color.New(color.FgCyan, color.Bold)
)

func main() {
	config := flag.String("c", "", "system description (*.yaml)")
	coreID := flag.Int("core", 0, "core the calls run on")
	script := flag.String("script", "", "list of steps (*.yaml)")
	interactive := flag.Bool("i", false, "read steps from the terminal")
	verbose := flag.Int("v", int(klog.ErrorMask|klog.WarnMask), "log mask")
	entry := flag.String("task", "", "task the calls are made from (default: start-up code)")
	privileged := flag.Bool("privileged", false, "run the entry task in supervisor mode")
	silent := flag.Bool("silent", false, "do not dump the core after each step")
	flag.Parse()

	if *config == "" {
		fmt.Fprintln(os.Stderr, "Please set a system description with -c")
		os.Exit(1)
	}
	klog.SetLevel(klog.MaskLevel(*verbose))

	cfg, err := kernel.LoadConfig(*config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	sys, err := kernel.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if *coreID < 0 || *coreID >= len(sys.Cores()) {
		fmt.Fprintf(os.Stderr, "no core %d\n", *coreID)
		os.Exit(1)
	}
	sys.ErrorHook = func(k *kernel.Kernel, tag trap.Tag, st trap.Status) {
		failColor.Fprintf(os.Stdout, "error hook: %s returned %s\n", tag, st)
		k.Gateway().HookReturn()
	}
	k := sys.Core(trap.CoreID(*coreID))
	if *entry != "" {
		if err := k.Enter(*entry, *privileged); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	}

	s := &session{k: k, w: os.Stdout, silent: *silent}
	switch {
	case *script != "":
		steps, err := loadScript(*script)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		for _, st := range steps {
			if err := s.run(st); err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}
		}
	case *interactive:
		if err := s.interact(); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "Please set -script or -i")
		os.Exit(1)
	}

	sys.PIC().Dump(os.Stdout)
	b, err := yaml.Marshal(sys.Snapshot())
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Printf("traps = %d\n%s", k.Traps(), b)
}

func loadScript(filename string) ([]kernel.Step, error) {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var steps []kernel.Step
	if err := yaml.UnmarshalStrict(b, &steps); err != nil {
		return nil, fmt.Errorf("script %s: %w", filename, err)
	}
	return steps, nil
}

type session struct {
	k      *kernel.Kernel
	w      io.Writer
	silent bool
}

func (s *session) run(st kernel.Step) error {
	stepColor.Fprintf(s.w, "> %s%v\n", st.Call, st.Args)
	r, err := s.k.Exec(st)
	if err != nil {
		return err
	}
	c := okColor
	if r.Status != "" && r.Status != trap.StatusOK.String() {
		c = failColor
	}
	c.Fprintf(s.w, "  %s %s\n", r.Status, strings.Join(r.Out, " "))
	if !s.silent {
		s.k.Core().Dump(s.w)
	}
	return nil
}

// parseStep reads "Call arg...", e.g. "SetRelAlarm 0 5 0". A trailing "nil"
// passes nil for the output parameters.
func parseStep(line string) (kernel.Step, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return kernel.Step{}, fmt.Errorf("empty step")
	}
	st := kernel.Step{Call: f[0]}
	for _, a := range f[1:] {
		if a == "nil" {
			st.Nil = true
			continue
		}
		v, err := strconv.ParseUint(a, 0, 64)
		if err != nil {
			return kernel.Step{}, fmt.Errorf("argument %q: %w", a, err)
		}
		st.Args = append(st.Args, v)
	}
	return st, nil
}

func (s *session) interact() error {
	t, err := tty.Open()
	if err != nil {
		return err
	}
	defer t.Close()
	out := t.Output()
	fmt.Fprintf(out, "steps: %s\n", strings.Join(kernel.StepNames(), " "))
	for {
		fmt.Fprint(out, "trapsim> ")
		line, err := t.ReadString()
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "q" {
			return nil
		}
		st, err := parseStep(line)
		if err == nil {
			err = s.run(st)
		}
		if err != nil {
			failColor.Fprintln(out, err.Error())
		}
	}
}
