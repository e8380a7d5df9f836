package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/pmbus"
	"github.com/mklimuk/pmbus/cmd/pmbus/console"
)

var rawCmd = cli.Command{
	Name:  "raw",
	Usage: "run a bare SMBus transaction",
	Subcommands: cli.Commands{
		{
			Name:      "send-byte",
			ArgsUsage: "<cmd>",
			Action: withTransport(func(ctx context.Context, c *cli.Context, t pmbus.Transport) error {
				cmd, err := argByte(c, 0)
				if err != nil {
					return err
				}
				err = t.SendByte(ctx, cmd)
				if err != nil {
					return console.ExitErr("send byte failed", err)
				}
				console.Infof("%s sent", pmbus.Command(cmd))
				return nil
			}),
		},
		{
			Name:      "write-byte",
			ArgsUsage: "<cmd> <value>",
			Action: withTransport(func(ctx context.Context, c *cli.Context, t pmbus.Transport) error {
				cmd, err := argByte(c, 0)
				if err != nil {
					return err
				}
				v, err := argByte(c, 1)
				if err != nil {
					return err
				}
				err = t.WriteByte(ctx, cmd, v)
				if err != nil {
					return console.ExitErr("write byte failed", err)
				}
				console.Infof("%s <- %#02x", pmbus.Command(cmd), v)
				return nil
			}),
		},
		{
			Name:      "write-word",
			ArgsUsage: "<cmd> <value>",
			Action: withTransport(func(ctx context.Context, c *cli.Context, t pmbus.Transport) error {
				cmd, err := argByte(c, 0)
				if err != nil {
					return err
				}
				v, err := argUint(c, 1, 16)
				if err != nil {
					return err
				}
				err = t.WriteWord(ctx, cmd, uint16(v))
				if err != nil {
					return console.ExitErr("write word failed", err)
				}
				console.Infof("%s <- %#04x", pmbus.Command(cmd), v)
				return nil
			}),
		},
		{
			Name:      "read-byte",
			ArgsUsage: "<cmd>",
			Action: withTransport(func(ctx context.Context, c *cli.Context, t pmbus.Transport) error {
				cmd, err := argByte(c, 0)
				if err != nil {
					return err
				}
				v, err := t.ReadByte(ctx, cmd)
				if err != nil {
					return console.ExitErr("read byte failed", err)
				}
				console.Value(pmbus.Command(cmd).String(), fmt.Sprintf("%#02x", v))
				return nil
			}),
		},
		{
			Name:      "read-word",
			ArgsUsage: "<cmd>",
			Action: withTransport(func(ctx context.Context, c *cli.Context, t pmbus.Transport) error {
				cmd, err := argByte(c, 0)
				if err != nil {
					return err
				}
				v, err := t.ReadWord(ctx, cmd)
				if err != nil {
					return console.ExitErr("read word failed", err)
				}
				console.Value(pmbus.Command(cmd).String(), fmt.Sprintf("%#04x", v))
				return nil
			}),
		},
		{
			Name:      "read-block",
			ArgsUsage: "<cmd>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "size", Value: 32, Usage: "receive buffer capacity"},
			},
			Action: withTransport(func(ctx context.Context, c *cli.Context, t pmbus.Transport) error {
				cmd, err := argByte(c, 0)
				if err != nil {
					return err
				}
				size := c.Int("size")
				if size < 0 {
					return console.Exit(1, "invalid size %d", size)
				}
				buf := make([]byte, size)
				n, err := t.ReadBlock(ctx, cmd, buf)
				if err != nil {
					return console.ExitErr("read block failed", err)
				}
				console.Printf("%s (%d bytes)\n%s", pmbus.Command(cmd), n, hex.Dump(buf[:n]))
				return nil
			}),
		},
	},
}

func argByte(c *cli.Context, i int) (byte, error) {
	v, err := argUint(c, i, 8)
	return byte(v), err
}

func argUint(c *cli.Context, i int, bits int) (uint64, error) {
	if c.NArg() <= i {
		return 0, console.Exit(1, "missing argument %d", i+1)
	}
	v, err := strconv.ParseUint(c.Args().Get(i), 0, bits)
	if err != nil {
		return 0, console.Exit(1, "invalid argument %q: %s", c.Args().Get(i), console.Red(err))
	}
	return v, nil
}
