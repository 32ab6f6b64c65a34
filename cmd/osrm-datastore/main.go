/*
 *
 * Copyright 2025 the osrm-backend authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Command osrm-datastore loads a processed routing dataset into shared
// memory and hot-swaps it under running engine processes.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wearebase/osrm-backend/internal/shm"
	"github.com/wearebase/osrm-backend/internal/storage"
)

func main() {
	godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := newRootCmd().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var maxWait int

	cmd := &cobra.Command{
		Use:   "osrm-datastore <dataset.osrm>",
		Short: "Load a routing dataset into shared memory",
		Long: `osrm-datastore loads a processed routing dataset into a shared memory
region and announces it to running engine processes. A second run swaps in
a new dataset without interrupting queries: clients finish on the old
region, switch, and the old region is reclaimed once the last one detaches.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := storage.NewStorageConfig(args[0])
			return storage.New(config).Run(maxWait)
		},
	}
	cmd.Flags().IntVar(&maxWait, "max-wait", -1,
		"seconds to wait for the region lock before force-recreating the monitor (negative waits forever)")

	cmd.AddCommand(newInspectCmd())
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the currently published region and its block catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, timestamp, err := storage.AttachCurrent(shm.DefaultKeyspace, shm.DefaultMonitorName)
			if err != nil {
				return err
			}
			defer view.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "region:    %s\n", view.Region())
			fmt.Fprintf(out, "timestamp: %d\n", timestamp)
			layout := view.Layout()
			for bid := storage.BlockID(0); int(bid) < storage.NumBlocks; bid++ {
				if _, err := view.Block(bid); err != nil {
					return err
				}
				fmt.Fprintf(out, "%-34s entries=%-12d bytes=%d\n",
					bid, layout.Entries(bid), layout.ByteSize(bid))
			}
			return nil
		},
	}
}
