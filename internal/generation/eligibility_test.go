package generation

import (
	"testing"

	"reelforge/internal/domain"
)

func TestEligible(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Sentence)
		medium domain.Medium
		want   bool
	}{
		{
			name:   "audio missing artifact",
			medium: domain.MediumAudio,
			want:   true,
		},
		{
			name:   "audio blank text",
			mutate: func(s *domain.Sentence) { s.Text = "   " },
			medium: domain.MediumAudio,
			want:   false,
		},
		{
			name: "audio up to date",
			mutate: func(s *domain.Sentence) {
				s.AudioFile = "projects/p/audio/s.wav"
				s.AudioDirty = false
			},
			medium: domain.MediumAudio,
			want:   false,
		},
		{
			name: "audio stale artifact",
			mutate: func(s *domain.Sentence) {
				s.AudioFile = "projects/p/audio/s.wav"
				s.AudioDirty = true
			},
			medium: domain.MediumAudio,
			want:   true,
		},
		{
			name:   "image missing artifact",
			medium: domain.MediumImage,
			want:   true,
		},
		{
			name:   "image without prompt",
			mutate: func(s *domain.Sentence) { s.ImagePrompt = "" },
			medium: domain.MediumImage,
			want:   false,
		},
		{
			name: "image up to date",
			mutate: func(s *domain.Sentence) {
				s.ImageFile = "projects/p/images/s.png"
				s.ImageDirty = false
			},
			medium: domain.MediumImage,
			want:   false,
		},
		{
			name:   "video without prerequisite image",
			medium: domain.MediumVideo,
			want:   false,
		},
		{
			name: "video with image and prompt",
			mutate: func(s *domain.Sentence) {
				s.ImageFile = "projects/p/images/s.png"
			},
			medium: domain.MediumVideo,
			want:   true,
		},
		{
			name: "video with image but no prompt",
			mutate: func(s *domain.Sentence) {
				s.ImageFile = "projects/p/images/s.png"
				s.VideoPrompt = ""
			},
			medium: domain.MediumVideo,
			want:   false,
		},
		{
			name: "video up to date",
			mutate: func(s *domain.Sentence) {
				s.ImageFile = "projects/p/images/s.png"
				s.VideoFile = "projects/p/videos/s.mp4"
				s.VideoDirty = false
			},
			medium: domain.MediumVideo,
			want:   false,
		},
		{
			name: "stale image still counts as video prerequisite",
			mutate: func(s *domain.Sentence) {
				s.ImageFile = "projects/p/images/s.png"
				s.ImageDirty = true
			},
			medium: domain.MediumVideo,
			want:   true,
		},
		{
			name:   "unknown medium",
			medium: domain.Medium("gif"),
			want:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := sentence("s1", tc.mutate)
			if got := Eligible(s, tc.medium); got != tc.want {
				t.Fatalf("Eligible(%s) = %v, want %v", tc.medium, got, tc.want)
			}
		})
	}
}

func TestFilterEligiblePreservesOrder(t *testing.T) {
	sentences := []domain.Sentence{
		*sentence("s1", nil),
		*sentence("s2", func(s *domain.Sentence) { s.ImagePrompt = "" }),
		*sentence("s3", nil),
		*sentence("s4", func(s *domain.Sentence) {
			s.ImageFile = "projects/p/images/s4.png"
			s.ImageDirty = false
		}),
		*sentence("s5", nil),
	}

	got := FilterEligible(sentences, domain.MediumImage)
	want := []string{"s1", "s3", "s5"}
	if len(got) != len(want) {
		t.Fatalf("filtered %d sentences, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestForceCandidatesIncludesUpToDate(t *testing.T) {
	sentences := []domain.Sentence{
		*sentence("s1", func(s *domain.Sentence) {
			s.ImageFile = "projects/p/images/s1.png"
			s.ImageDirty = false
		}),
		*sentence("s2", func(s *domain.Sentence) { s.ImagePrompt = "  " }),
		*sentence("s3", nil),
	}

	ids := ForceCandidates(sentences, domain.MediumImage)
	if len(ids) != 2 || ids[0] != "s1" || ids[1] != "s3" {
		t.Fatalf("ForceCandidates = %v, want [s1 s3]", ids)
	}
}
