// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gbt-boot (re)starts all the processes of a GBT decoding chain,
// as listed in the boot section of its configuration file.
package main // import "github.com/go-lpc/gbt/cmd/gbt-boot"

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/go-lpc/gbt/config"
	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

var (
	cname   = flag.String("cfg", "gbt.yaml", "path to the configuration file")
	restart = flag.Bool("restart", true, "kill already running instances of the processes")

	stop = make(chan os.Signal, 1)
)

func main() {
	flag.Parse()

	log.SetPrefix("gbt-boot: ")
	log.SetFlags(0)

	cfg, err := config.Load(*cname)
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}

	err = run(cfg.Boot, *restart, stop)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(boot config.Boot, restart bool, stop chan os.Signal) error {
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	if len(boot.Procs) == 0 {
		return fmt.Errorf("no process to boot")
	}

	if restart {
		for _, proc := range boot.Procs {
			name := filepath.Base(proc.Cmd)
			kill := exec.Command("killall", name)
			kill.Stderr = os.Stderr
			kill.Stdout = os.Stdout
			err := kill.Run()
			if err != nil {
				log.Printf("could not kill %q: %+v", name, err)
			}
		}
	}

	dir := boot.LogDir
	if dir == "" {
		dir = "/var/log/gbt"
	}
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("could not create log dir: %w", err)
	}

	var (
		grp  errgroup.Group
		kill = make(chan int)
	)
	for _, proc := range boot.Procs {
		proc := proc
		grp.Go(func() error {
			return start(proc, dir, kill, boot.Monitor)
		})
	}

	go func() {
		<-stop
		close(kill)
	}()

	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("could not boot processes: %w", err)
	}
	return nil
}

func start(proc config.Proc, dir string, kill chan int, freq time.Duration) error {
	name := proc.Name
	if name == "" {
		name = filepath.Base(proc.Cmd)
	}
	out, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		return fmt.Errorf("could not create output log file for %q: %w", name, err)
	}
	defer out.Close()

	cmd := exec.Command(proc.Cmd, proc.Args...)
	cmd.Stdout = out
	cmd.Stderr = out

	log.Printf("starting %q...", name)
	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %q: %w", name, err)
	}

	if freq > 0 {
		p, err := pmon.Monitor(cmd.Process.Pid)
		if err != nil {
			_ = cmd.Process.Kill()
			return fmt.Errorf("could not start monitoring %q (pid=%d): %w", name, cmd.Process.Pid, err)
		}
		f, err := os.Create(filepath.Join(dir, name+"-pmon.log"))
		if err != nil {
			_ = cmd.Process.Kill()
			return fmt.Errorf("could not create pmon log file for command %q: %w", name, err)
		}
		defer f.Close()
		p.W = f
		p.Freq = freq

		go func() {
			log.Printf("run pmon %q...", name)
			err := p.Run()
			if err != nil {
				log.Printf("could not start monitoring %q: %+v", name, err)
			}
		}()

		defer func() {
			err := p.Kill()
			if err != nil {
				log.Printf("could not stop monitoring %q: %+v", name, err)
			}
		}()
	}

	errch := make(chan error, 1)
	go func() {
		errch <- cmd.Wait()
	}()

	select {
	case <-kill:
		err = cmd.Process.Kill()
		if err != nil {
			return fmt.Errorf("could not kill %q: %+v", name, err)
		}
		<-errch
	case err = <-errch:
		if err != nil {
			return fmt.Errorf("could not run %q: %w", name, err)
		}
	}

	return nil
}
