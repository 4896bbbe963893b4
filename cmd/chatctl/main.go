package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/rolechat/internal/config"
	"github.com/matheus3301/rolechat/internal/rpc"
	"github.com/matheus3301/rolechat/internal/workspace"
)

func main() {
	workspaceFlag := flag.String("workspace", "", "workspace name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	asFlag := flag.Int64("as", 0, "acting user id (0 = system)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(workspace.ConfigPath())
	if err != nil {
		fatalf("error: %v", err)
	}
	name := workspace.Resolve(*workspaceFlag, cfg)
	if err := workspace.ValidateName(name); err != nil {
		fatalf("error: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c, err := rpc.Dial(workspace.SocketPath(name))
	if err != nil {
		fatalf("error: cannot connect to daemon for workspace %q: %v", name, err)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		cmdWatch(c, prefix)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := output{json: *jsonFlag}
	switch args[0] {
	case "status":
		cmdStatus(ctx, c, out)
	case "send":
		need(args, 4, "send <from> <to> <text...>")
		m, err := c.Send(ctx, &rpc.SendRequest{
			SenderID:   id(args[1]),
			ReceiverID: id(args[2]),
			Text:       strings.Join(args[3:], " "),
		})
		check(err)
		out.print(m, func() { fmt.Printf("sent message %d\n", m.ID) })
	case "history":
		need(args, 3, "history <a> <b>")
		resp, err := c.History(ctx, &rpc.HistoryRequest{ViewerID: *asFlag, A: id(args[1]), B: id(args[2])})
		check(err)
		out.print(resp, func() {
			for _, m := range resp.Messages {
				mark := " "
				if m.Read {
					mark = "✓"
				}
				fmt.Printf("%s %s [%s] %s: %s\n", m.Timestamp.Local().Format("15:04:05"), mark, m.SenderRole, m.SenderName, m.Text)
			}
		})
	case "unread":
		need(args, 2, "unread <user> [from]")
		req := &rpc.UnreadRequest{UserID: id(args[1])}
		if len(args) > 2 {
			req.FromID = id(args[2])
		}
		resp, err := c.Unread(ctx, req)
		check(err)
		out.print(resp, func() { fmt.Println(resp.Count) })
	case "read":
		need(args, 2, "read <message>")
		check(c.MarkRead(ctx, &rpc.MessageRef{ActorID: *asFlag, MessageID: id(args[1])}))
	case "delete":
		need(args, 2, "delete <message>")
		check(c.Delete(ctx, &rpc.MessageRef{ActorID: *asFlag, MessageID: id(args[1])}))
	case "users":
		req := &rpc.ListUsersRequest{ViewerID: *asFlag}
		if len(args) > 1 {
			req.Role = args[1]
		}
		if len(args) > 2 {
			req.Query = args[2]
		}
		resp, err := c.ListUsers(ctx, req)
		check(err)
		out.print(resp, func() {
			if len(resp.Users) == 0 {
				fmt.Println("No users found.")
				return
			}
			for _, u := range resp.Users {
				online := "offline"
				if u.Online {
					online = "online"
				}
				fmt.Printf("%-4d %-20s %-24s %-6s %s\n", u.ID, u.Name, u.Email, u.Role, online)
			}
		})
	case "presence":
		need(args, 3, "presence <user> <on|off>")
		check(c.SetPresence(ctx, &rpc.PresenceRequest{UserID: id(args[1]), Online: args[2] == "on"}))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chatctl [--workspace <name>] [--json] [--as <user>] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                     Show daemon status")
	fmt.Fprintln(os.Stderr, "  send <from> <to> <text>    Send a message")
	fmt.Fprintln(os.Stderr, "  history <a> <b>            Show a conversation")
	fmt.Fprintln(os.Stderr, "  unread <user> [from]       Count unread messages")
	fmt.Fprintln(os.Stderr, "  read <message>             Mark a message read (--as receiver)")
	fmt.Fprintln(os.Stderr, "  delete <message>           Delete a message (--as actor)")
	fmt.Fprintln(os.Stderr, "  users [role] [query]       List users")
	fmt.Fprintln(os.Stderr, "  presence <user> <on|off>   Set online flag")
	fmt.Fprintln(os.Stderr, "  watch [prefix]             Stream events")
}

func cmdStatus(ctx context.Context, c *rpc.Client, out output) {
	resp, err := c.Status(ctx)
	check(err)
	out.print(resp, func() {
		fmt.Printf("Workspace: %s\n", resp.Workspace)
		fmt.Printf("State:     %s (since %s)\n", resp.State, resp.Since.Local().Format(time.RFC3339))
		fmt.Printf("Messages:  %d\n", resp.Messages)
		fmt.Printf("Users:     %d\n", resp.Users)
		fmt.Printf("Pending:   %d read receipts\n", resp.Pending)
	})
}

func cmdWatch(c *rpc.Client, prefix string) {
	stream, err := c.Watch(context.Background(), &rpc.WatchRequest{Prefix: prefix})
	check(err)
	enc := json.NewEncoder(os.Stdout)
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		check(err)
		_ = enc.Encode(evt)
	}
}

type output struct {
	json bool
}

func (o output) print(v any, human func()) {
	if o.json {
		outputJSON(v)
		return
	}
	human()
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func id(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fatalf("error: %q is not a user or message id", s)
	}
	return n
}

func need(args []string, n int, usage string) {
	if len(args) < n {
		fatalf("usage: chatctl %s", usage)
	}
}

func check(err error) {
	if err != nil {
		fatalf("error: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
