// friendstack-tui 在终端里本地运行双人轮流叠块（同一键盘轮流操作）
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"friendstack/config"
	"friendstack/server"
	"friendstack/stack"
)

const (
	pxPerCol = 10.0 // 水平方向每个字符格对应的像素
	pxPerRow = 20.0 // 垂直方向每个字符格对应的像素
	hudRows  = 3
)

type app struct {
	screen tcell.Screen
	game   *stack.Game
	log    *zap.Logger
	styles map[stack.PlayerID]tcell.Style
}

func newApp(cfg config.Config, seed int64, log *zap.Logger) (*app, error) {
	game, err := stack.New(cfg.Game, rand.New(rand.NewSource(seed)), stack.WithLogger(log))
	if err != nil {
		return nil, err
	}
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	a := &app{screen: screen, game: game, log: log, styles: make(map[stack.PlayerID]tcell.Style)}
	for _, p := range cfg.Game.Players {
		a.styles[p.ID] = tcell.StyleDefault.Background(tcell.GetColor(p.Color)).Foreground(tcell.ColorWhite)
	}
	return a, nil
}

// handleKey 返回 false 表示退出
func (a *app) handleKey(ev *tcell.EventKey) bool {
	var cmd stack.Command
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		cmd = stack.Command{Kind: stack.CmdNudge, DX: -a.game.Config().NudgeStep}
	case tcell.KeyRight:
		cmd = stack.Command{Kind: stack.CmdNudge, DX: a.game.Config().NudgeStep}
	case tcell.KeyUp:
		cmd = stack.Command{Kind: stack.CmdRotate}
	case tcell.KeyDown:
		cmd = stack.Command{Kind: stack.CmdHurry}
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			if cur := a.game.Current(); cur != nil {
				cmd = stack.Command{Kind: stack.CmdDrop, X: cur.Body.Center().X}
			}
		case 'r':
			cmd = stack.Command{Kind: stack.CmdReset}
		}
	}
	if cmd.Kind == stack.CmdNone {
		return true
	}
	if _, err := a.game.Apply(cmd); err != nil {
		a.log.Warn("command failed", zap.Stringer("kind", cmd.Kind), zap.Error(err))
	}
	return true
}

func (a *app) run() {
	ticker := time.NewTicker(time.Second / time.Duration(a.game.Config().TickRate))
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !a.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				a.screen.Sync()
			}
		case <-ticker.C:
			if err := a.game.Step(); err != nil {
				a.log.Error("step", zap.Error(err))
			}
			a.draw()
		}
	}
}

func (a *app) draw() {
	s := a.game.Snapshot()
	a.screen.Clear()
	cols := int(math.Ceil(s.FieldWidth / pxPerCol))
	rows := int(math.Ceil(s.FieldHeight / pxPerRow))

	// 场地边框
	frame := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for y := hudRows; y <= hudRows+rows; y++ {
		a.screen.SetContent(0, y, '│', nil, frame)
		a.screen.SetContent(cols+1, y, '│', nil, frame)
	}
	for x := 0; x <= cols+1; x++ {
		a.screen.SetContent(x, hudRows+rows, '─', nil, frame)
	}

	for _, b := range s.Settled {
		a.drawBlock(b, s.CameraY, cols, rows)
	}
	if s.Current != nil {
		a.drawBlock(*s.Current, s.CameraY, cols, rows)
	}

	line := fmt.Sprintf("turn: %s  phase: %s", s.CurrentPlayer, s.Phase)
	if s.Winner != "" {
		line = fmt.Sprintf("winner: %s  (r: new game)", s.Winner)
	}
	a.text(0, 0, line, tcell.StyleDefault.Bold(true))
	x := 0
	for _, p := range s.Players {
		entry := fmt.Sprintf("%s %.1f (%d)  ", p.Name, p.Score, p.Drops)
		a.text(x, 1, entry, a.styles[p.ID])
		x += len(entry) + 1
	}
	a.text(0, 2, "←/→ move  ↑ rotate  ↓ hurry  space drop  r reset  q quit", tcell.StyleDefault.Dim(true))
	a.screen.Show()
}

// drawBlock 以轴对齐包围盒填充字符格，中心写字形
func (a *app) drawBlock(b stack.BlockState, cameraY float64, cols, rows int) {
	cx, cy := b.X+b.W/2, b.Y+b.H/2
	c, sn := math.Abs(math.Cos(b.Angle)), math.Abs(math.Sin(b.Angle))
	w, h := b.W*c+b.H*sn, b.W*sn+b.H*c

	x0 := int(math.Floor((cx - w/2) / pxPerCol))
	x1 := int(math.Ceil((cx+w/2)/pxPerCol)) - 1
	y0 := int(math.Floor((cy - h/2 + cameraY) / pxPerRow))
	y1 := int(math.Ceil((cy+h/2+cameraY)/pxPerRow)) - 1
	style := a.styles[b.Owner]
	if b.Falling {
		style = style.Bold(true)
	}
	for y := max(y0, 0); y <= min(y1, rows-1); y++ {
		for x := max(x0, 0); x <= min(x1, cols-1); x++ {
			a.screen.SetContent(x+1, y+hudRows, ' ', nil, style)
		}
	}
	gx, gy := (x0+x1)/2, (y0+y1)/2
	if gx >= 0 && gx < cols && gy >= 0 && gy < rows {
		a.text(gx+1, gy+hudRows, b.Glyph, style)
	}
}

func (a *app) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func main() {
	var (
		cfgPath string
		seed    int64
	)
	flag.StringVar(&cfgPath, "config", "", "path to YAML config (optional)")
	flag.Int64Var(&seed, "seed", 0, "random seed, 0 = time based")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// 终端被占用，日志只写文件
	cfg.Log.Console = false
	if err := server.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer server.SyncLogger()

	if seed == 0 {
		seed = cfg.Server.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	a, err := newApp(cfg, seed, server.Log.Desugar().Named("tui"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.screen.Fini()

	a.run()
}
