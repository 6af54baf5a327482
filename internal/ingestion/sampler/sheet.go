package sampler

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/studyforge/quizgen-backend/internal/domain"
)

const (
	sheetColumns = 4
	sheetPadding = 8
	sheetLabelH  = 22
)

// RenderContactSheet tiles a snapshot set into one PNG grid, four stills
// per row, each labelled with its timestamp. fontPath may be empty; labels
// are skipped when no font is available.
func RenderContactSheet(set domain.SnapshotSet, fontPath string) ([]byte, error) {
	if len(set.Snapshots) == 0 {
		return nil, fmt.Errorf("snapshot set is empty")
	}

	tileW := set.Snapshots[0].Width
	tileH := set.Snapshots[0].Height
	if tileW <= 0 || tileH <= 0 {
		return nil, fmt.Errorf("snapshot has no dimensions")
	}

	cols := sheetColumns
	if len(set.Snapshots) < cols {
		cols = len(set.Snapshots)
	}
	rows := int(math.Ceil(float64(len(set.Snapshots)) / float64(cols)))

	cellH := tileH + sheetLabelH
	sheetW := cols*tileW + (cols+1)*sheetPadding
	sheetH := rows*cellH + (rows+1)*sheetPadding

	dc := gg.NewContext(sheetW, sheetH)
	dc.SetColor(color.Black)
	dc.Clear()

	var face font.Face
	if fontPath != "" {
		f, err := loadFontFace(fontPath, 13)
		if err != nil {
			return nil, err
		}
		face = f
	}

	for i, snap := range set.Snapshots {
		img, err := png.Decode(bytes.NewReader(snap.PNG))
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", i, err)
		}

		col := i % cols
		row := i / cols
		x := sheetPadding + col*(tileW+sheetPadding)
		y := sheetPadding + row*(cellH+sheetPadding)

		dc.DrawImage(img, x, y)

		if face != nil {
			label := fmt.Sprintf("%s  #%d  %s", set.SourceName, snap.Index, formatTimestamp(snap.AtSec))
			dc.SetFontFace(face)
			dc.SetColor(color.White)
			dc.DrawString(label, float64(x+4), float64(y+tileH+sheetLabelH-6))
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode contact sheet: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTimestamp(atSec float64) string {
	total := int(atSec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}

