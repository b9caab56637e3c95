package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canvasServer/backend/internal/board"
	"canvasServer/backend/internal/client"
)

// 无界面参与者：加入房间、可选地画一笔演示笔画，然后把房间里的
// 事件打到日志上。联调/冒烟测试用。
func main() {
	addr := flag.String("addr", "ws://127.0.0.1:3001/canvas/ws", "server websocket url")
	room := flag.String("room", "lobby", "room to join")
	name := flag.String("name", "", "display name")
	draw := flag.Bool("draw", false, "draw a demo stroke after joining")
	flag.Parse()

	canvas := client.NewCanvas(logRenderer{})

	c, err := client.Dial(*addr, *room, *name, canvas)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer c.Close()

	c.OnBootstrap = func(self board.Peer, peers []board.Peer) {
		log.Printf("joined room=%s as %s (%s), %d peers, %d ops visible",
			*room, self.Name, self.UserID, len(peers), len(canvas.AliveOps()))
	}
	c.OnPeerJoined = func(p board.Peer) { log.Printf("peer joined: %s (%s)", p.Name, p.UserID) }
	c.OnPeerLeft = func(id string) { log.Printf("peer left: %s", id) }
	c.OnLatency = func(ms float64) { log.Printf("latency: %.0fms", ms) }

	if *draw {
		// 等 bootstrap 到位再画
		time.Sleep(500 * time.Millisecond)
		builder := client.NewStrokeBuilder(func(in board.StrokeInput) {
			if err := c.SubmitStroke(in); err != nil {
				log.Printf("submit failed: %v", err)
			}
		})
		builder.Begin(10, 10, nowMs())
		for i := 1; i <= 20; i++ {
			builder.Move(10+float64(i)*5, 10+float64(i)*3, nowMs())
			time.Sleep(10 * time.Millisecond)
		}
		builder.End()
		log.Printf("demo stroke submitted")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

func nowMs() float64 { return float64(time.Now().UnixNano()) / float64(time.Millisecond) }

// logRenderer 把“绘制”打成日志，像素渲染不在本系统职责内。
type logRenderer struct{}

func (logRenderer) Clear() {}

func (logRenderer) DrawOp(op board.Operation) {
	log.Printf("draw op=%s seq=%d tool=%s points=%d", op.ID, op.Sequence, op.Tool, len(op.Points))
}
