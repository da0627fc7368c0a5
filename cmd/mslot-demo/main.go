// Copyright 2017 Aleksandr Demakin. All rights reserved.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

// mslot-demo drives a mailslot through its full lifecycle:
// creation, writer admission, queued reads, timeouts and teardown.
// Mailslots are process-scoped, so the whole scenario runs in-process.
package main

import (
	"fmt"
	"os"
	"time"

	"bitbucket.org/avd/go-mailslot"

	"github.com/spf13/cobra"
)

var (
	slotName    string
	maxMsgSize  int
	readTimeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "mslot-demo",
		Short: "mailslot ipc demonstration",
	}
	root.PersistentFlags().StringVar(&slotName, "name", `mailslot\demo`, "mailslot name")
	root.PersistentFlags().IntVar(&maxMsgSize, "max-size", 256, "maximum message size")
	root.PersistentFlags().DurationVar(&readTimeout, "timeout", time.Second, "read timeout for queued reads")
	root.AddCommand(demoCmd(), stressCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "run the create/open/wait/teardown scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mailslot.Create(slotName, maxMsgSize, readTimeout)
			if err != nil {
				return err
			}
			defer m.Close()
			fmt.Printf("created %q, max message size %d\n", m.Name(), m.MaxMessageSize())

			w, err := mailslot.Open(slotName, mailslot.AccessWrite, mailslot.ShareRead)
			if err != nil {
				return err
			}
			defer w.Close()
			fmt.Println("writer attached (exclusive)")

			if _, err = mailslot.Open(slotName, mailslot.AccessWrite, mailslot.ShareRead); err != nil {
				fmt.Println("second exclusive writer refused:", err)
			}

			r, err := m.QueueRead()
			if err != nil {
				return err
			}
			if _, err = w.Write([]byte("hello, mailslot")); err != nil {
				return err
			}
			fmt.Println("queued read completed:", <-r.Done())

			info, err := m.Info()
			if err != nil {
				return err
			}
			fmt.Printf("buffered=%v next message size=%d\n", info.HasMessage, info.NextMessageSize)

			buf := make([]byte, maxMsgSize)
			n, err := m.ReadMessage(buf)
			if err != nil {
				return err
			}
			fmt.Printf("received %q\n", buf[:n])

			r, err = m.QueueRead()
			if err != nil {
				return err
			}
			fmt.Println("waiting with no traffic:", <-r.Done())
			return nil
		},
	}
}

func stressCmd() *cobra.Command {
	var msgs int
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "push a stream of messages through queued reads",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mailslot.Create(slotName, maxMsgSize, mailslot.WaitForever)
			if err != nil {
				return err
			}
			defer m.Close()
			w, err := mailslot.Open(slotName, mailslot.AccessWrite, mailslot.ShareRead)
			if err != nil {
				return err
			}
			defer w.Close()
			buf := make([]byte, maxMsgSize)
			start := time.Now()
			for i := 0; i < msgs; i++ {
				r, err := m.QueueRead()
				if err != nil {
					return err
				}
				if _, err = w.Write([]byte(fmt.Sprintf("message %d", i))); err != nil {
					return err
				}
				if status := <-r.Done(); status != mailslot.StatusAlerted {
					return fmt.Errorf("read %d completed with %v", i, status)
				}
				if _, err = m.ReadMessage(buf); err != nil {
					return err
				}
			}
			fmt.Printf("%d messages in %v\n", msgs, time.Since(start))
			return nil
		},
	}
	cmd.Flags().IntVar(&msgs, "messages", 1000, "number of messages to push")
	return cmd
}
