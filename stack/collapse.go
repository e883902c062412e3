package stack

import "math"

// CollapseDetector 两种失稳判定：倾斜坍塌与掉出场地，可分别开关
type CollapseDetector struct {
	cfg Config
}

func NewCollapseDetector(cfg Config) CollapseDetector {
	return CollapseDetector{cfg: cfg}
}

// Check 落定后调用：倾斜坍塌是否触发
func (d CollapseDetector) Check(settled []*Block) bool {
	return d.cfg.LeanCollapse && LeanCollapsed(settled, d.cfg)
}

// Fallen 每 tick 调用：是否有块掉出场地
func (d CollapseDetector) Fallen(blocks []*Block) (*Block, bool) {
	if !d.cfg.FallThrough {
		return nil, false
	}
	return FallenBody(blocks, d.cfg.FieldHeight)
}

// LeanCollapsed 近顶区（上边缘 y < NearTopY）至少两块时，
// 塔高超过 MinLeanHeight 且它们的平均中心 x 偏离场地中线超过 LeanThreshold 即坍塌
func LeanCollapsed(settled []*Block, cfg Config) bool {
	if len(settled) == 0 {
		return false
	}
	minY := math.Inf(1)
	var sumX float64
	n := 0
	for _, b := range settled {
		top := b.Body.Top()
		minY = math.Min(minY, top)
		if top < cfg.NearTopY {
			sumX += b.Body.Center().X
			n++
		}
	}
	if n < 2 {
		return false
	}
	avgX := sumX / float64(n)
	height := cfg.FieldHeight - minY
	return height > cfg.MinLeanHeight && math.Abs(avgX-cfg.FieldWidth/2) > cfg.LeanThreshold
}

// FallenBody 第一个上边缘越过场地底部的块
func FallenBody(blocks []*Block, fieldHeight float64) (*Block, bool) {
	for _, b := range blocks {
		if b.Body.Top() > fieldHeight {
			return b, true
		}
	}
	return nil, false
}
