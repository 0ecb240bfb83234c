// ***************************************************************************
//
//  Copyright 2017 David (Dizzy) Smith, dizzyd@dizzyd.com
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
// ***************************************************************************

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/apoorvam/goterminal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gammainstall/internal/config"
	"gammainstall/internal/orchestrator"
	"gammainstall/internal/state"
)

var version string

var ARG_ANOMALY_PATH string
var ARG_MODPACK_PATH string
var ARG_CACHE_PATH string
var ARG_MOD_MANAGER_VERSION string
var ARG_PRESERVE_USER_CONFIG bool
var ARG_FORCE_REPO_REFETCH bool
var ARG_CHECK_HASHES bool
var ARG_DELETE_EXTERNAL_DLLS bool
var ARG_PARALLEL_DOWNLOADS int
var ARG_PARALLEL_EXTRACTIONS int
var ARG_DOWNLOAD_TIMEOUT_S int
var ARG_WINE bool
var ARG_SKIP_IF_VALID bool

type command struct {
	Fn   func() error
	Desc string
}

var gCommands = map[string]command{
	"install": {
		Fn:   cmdInstall,
		Desc: "Install (or resume installing) the modpack into the configured paths",
	},
	"config.show": {
		Fn:   cmdConfigShow,
		Desc: "Print the configuration that would be used, as flat key/value pairs",
	},
	"config.validate": {
		Fn:   cmdConfigValidate,
		Desc: "Validate the configuration without installing anything",
	},
	"version": {
		Fn:   cmdVersion,
		Desc: "Print the installer's version",
	},
}

// CONSOLE is the same in-place-redraw terminal writer the teacher's CLI
// uses for progress output.
var CONSOLE = goterminal.New(os.Stdout)

var msgPrinter = message.NewPrinter(language.English)

func buildConfig() (config.Configuration, error) {
	cfg := config.Default(ARG_ANOMALY_PATH, ARG_MODPACK_PATH, ARG_CACHE_PATH)
	cfg.ModManagerVersion = ARG_MOD_MANAGER_VERSION
	cfg.PreserveUserConfig = ARG_PRESERVE_USER_CONFIG
	cfg.ForceRepoRefetch = ARG_FORCE_REPO_REFETCH
	cfg.CheckHashes = ARG_CHECK_HASHES
	cfg.DeleteExternalDLLs = ARG_DELETE_EXTERNAL_DLLS
	if ARG_PARALLEL_DOWNLOADS > 0 {
		cfg.ParallelDownloads = ARG_PARALLEL_DOWNLOADS
	}
	if ARG_PARALLEL_EXTRACTIONS > 0 {
		cfg.ParallelExtractions = ARG_PARALLEL_EXTRACTIONS
	}
	if ARG_DOWNLOAD_TIMEOUT_S > 0 {
		cfg.DownloadTimeoutS = ARG_DOWNLOAD_TIMEOUT_S
	}

	if err := cfg.Validate(); err != nil {
		return config.Configuration{}, err
	}
	return cfg, nil
}

func cmdConfigShow() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	flat := cfg.ToFlatMap()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		console("%s = %s\n", k, flat[k])
	}
	return nil
}

func cmdVersion() error {
	if version == "" {
		console("dev build\n")
		return nil
	}
	console("%s\n", version)
	return nil
}

func cmdConfigValidate() error {
	_, err := buildConfig()
	if err != nil {
		return err
	}
	console("configuration OK\n")
	return nil
}

func cmdInstall() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	o, err := orchestrator.New(cfg, renderProgress)
	if err != nil {
		return err
	}
	defer o.Close()

	ok := o.Install(context.Background(), orchestrator.Options{
		SkipIfValid: ARG_SKIP_IF_VALID,
		WineMode:    ARG_WINE,
	})

	if !ok {
		snap := o.Snapshot()
		for _, e := range snap.Errors {
			console("ERROR: %s\n", e)
		}
		return fmt.Errorf("install did not complete (last phase: %s)", snap.Phase)
	}

	snap := o.Snapshot()
	msgPrinter.Fprintf(os.Stdout, "Done. %d mods installed, %d failed, started %s\n",
		snap.InstalledMods, len(snap.FailedMods), snap.ElapsedFriendly(time.Now()))
	return nil
}

// renderProgress redraws a status line in place, plus a mod-count line once
// TotalMods is known, the same way the
// teacher's pkg/console.go's logAction clears and reprints CONSOLE on every
// call instead of scrolling the terminal.
func renderProgress(s state.InstallationState) {
	CONSOLE.Clear()
	if s.CurrentFile != "" {
		msgPrinter.Fprintf(CONSOLE, "[%5.1f%%] %s: %s - %s\n",
			s.OverallProgress*100, s.Phase, s.CurrentOperation, s.CurrentFile)
	} else {
		msgPrinter.Fprintf(CONSOLE, "[%5.1f%%] %s: %s\n",
			s.OverallProgress*100, s.Phase, s.CurrentOperation)
	}
	if s.TotalMods > 0 {
		msgPrinter.Fprintf(CONSOLE, "mods: %d/%d downloaded, %d installed, %d failed\n",
			s.DownloadedMods, s.TotalMods, s.InstalledMods, len(s.FailedMods))
	}
	CONSOLE.Print()
}

func console(f string, args ...interface{}) {
	fmt.Printf(f, args...)
}

func usage() {
	console("usage: gammainstall [<options>] <command>\n")
	console("<options>\n")
	flag.PrintDefaults()
	console("\n<commands>\n")

	keys := make([]string, 0, len(gCommands))
	for k := range gCommands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, cmd := range keys {
		console("  - %s: %s\n", cmd, gCommands[cmd].Desc)
	}
}

func main() {
	flag.StringVar(&ARG_ANOMALY_PATH, "anomaly-path", "", "Path to an existing S.T.A.L.K.E.R.: Anomaly installation, or where to install one")
	flag.StringVar(&ARG_MODPACK_PATH, "modpack-path", "", "Path to materialise the GAMMA modpack into")
	flag.StringVar(&ARG_CACHE_PATH, "cache-path", "", "Path to cache downloaded archives and the resume ledger")
	flag.StringVar(&ARG_MOD_MANAGER_VERSION, "mod-manager-version", "", "Mod Organizer 2 version to install (empty means the built-in default, v2.4.4)")
	flag.BoolVar(&ARG_PRESERVE_USER_CONFIG, "preserve-user-config", true, "Stored in the configuration (see config.show); the install run does not read it")
	flag.BoolVar(&ARG_FORCE_REPO_REFETCH, "force-repo-refetch", false, "Re-clone the definition repositories instead of pulling")
	flag.BoolVar(&ARG_CHECK_HASHES, "check-hashes", true, "Stored in the configuration; archive hashes are verified whenever one is known, whatever this is set to")
	flag.BoolVar(&ARG_DELETE_EXTERNAL_DLLS, "delete-external-dlls", false, "Stored in the configuration (see config.show); the install run removes no DLLs")
	flag.IntVar(&ARG_PARALLEL_DOWNLOADS, "parallel-downloads", 0, "Concurrent mod downloads (1-8, default 4)")
	flag.IntVar(&ARG_PARALLEL_EXTRACTIONS, "parallel-extractions", 0, "Concurrent archive extractions (1-4, default 2)")
	flag.IntVar(&ARG_DOWNLOAD_TIMEOUT_S, "download-timeout", 0, "Per-request download timeout in seconds (60-600, default 300)")
	flag.BoolVar(&ARG_WINE, "wine", false, "Switch rs_screenmode from fullscreen to borderless in user.ltx for a Wine/Proton install")
	flag.BoolVar(&ARG_SKIP_IF_VALID, "skip-if-valid", true, "Skip re-downloading the base game/mod manager if already installed and verified")

	flag.Parse()
	if !flag.Parsed() || flag.NArg() < 1 {
		usage()
		os.Exit(-1)
	}

	commandName := flag.Arg(0)
	cmd, exists := gCommands[commandName]
	if !exists {
		console("ERROR: unknown command '%s'\n", commandName)
		usage()
		os.Exit(-1)
	}

	if err := cmd.Fn(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}
