package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sceneWithScores(scores ...float64) Scene {
	s := Scene{Source: "test.jpg", Width: 640, Height: 480}
	for i, sc := range scores {
		f := FromSignedConfidence(Bounds{X1: i * 10, Y1: 0, X2: i*10 + 5, Y2: 5}, 80)
		f.DetectionScore = sc
		s.Faces = append(s.Faces, f)
	}
	return s
}

func TestScene_Filter(t *testing.T) {
	t.Parallel()

	s := sceneWithScores(0.9, 0.3, 0.5, 0)
	got := s.Filter(0.4)

	assert.Len(t, got.Faces, 3)
	// Order preserved; unknown score kept.
	assert.InDelta(t, 0.9, got.Faces[0].DetectionScore, 1e-9)
	assert.InDelta(t, 0.5, got.Faces[1].DetectionScore, 1e-9)
	assert.InDelta(t, 0.0, got.Faces[2].DetectionScore, 1e-9)
	assert.Equal(t, "test.jpg", got.Source)
	assert.Len(t, s.Faces, 4, "filter must not modify the receiver")
}

func TestScene_DetectionCounts(t *testing.T) {
	t.Parallel()

	s := sceneWithScores(0.9, 0.3, 0.5, 0.2)

	c := s.DetectionCounts(0.4)
	assert.Equal(t, 2, c.AtChosen)
	assert.Equal(t, 3, c.AtLow)
	assert.Equal(t, 1, c.AtHigh)
	assert.True(t, c.Ambiguous())

	confident := sceneWithScores(0.95, 0.99)
	assert.False(t, confident.DetectionCounts(0.4).Ambiguous())
}

func TestScene_Clamp(t *testing.T) {
	t.Parallel()

	s := Scene{Width: 100, Height: 100, Faces: []FaceRecord{
		FromSignedConfidence(Bounds{X1: -4, Y1: 10, X2: 150, Y2: 40}, 50),
	}}
	s.Clamp()
	assert.Equal(t, Bounds{X1: 0, Y1: 10, X2: 99, Y2: 40}, s.Faces[0].Bounds)
}
