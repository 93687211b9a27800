// Command reign is the terminal client: a local-first journal that syncs
// with reignd when signed in.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := &cli{out: os.Stdout, in: bufio.NewReader(os.Stdin)}
	err := newRootCmd(c).ExecuteContext(ctx)
	stop()
	c.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "reign:", err)
		os.Exit(1)
	}
}
