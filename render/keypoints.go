package render

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-instseg/detection"
)

const (
	// keypointAlpha is the blend weight of the annotated scratch buffer.
	keypointAlpha = 0.7
	// DefaultKeypointThreshold is the minimum joint confidence logit for a
	// joint to be drawn.
	DefaultKeypointThreshold = 2.0

	boneThickness  = 2
	keypointRadius = 3
)

// Keypoints draws the person skeleton of every detection that carries
// keypoints, then alpha-blends the annotated copy over the frame.
//
// Per instance, in order: a line from the synthetic mid-shoulder joint to
// the nose, a line from mid-shoulder to the synthetic mid-hip joint, then
// every bone whose two endpoints both exceed the confidence threshold, with
// a filled circle at each sufficiently confident endpoint. Bone colors come
// from a spectrum palette of size len(Bones)+2; the two synthetic lines use
// the trailing two entries.
func Keypoints(img gocv.Mat, dets detection.Set, threshold float32) gocv.Mat {
	palette := Rainbow(len(detection.Bones) + 2)

	out := img.Clone()
	for _, d := range dets {
		if len(d.Keypoints) != detection.NumJoints {
			continue
		}
		blended := drawSkeleton(out, d.Keypoints, palette, threshold)
		out.Close()
		out = blended
	}
	return out
}

// drawSkeleton annotates one instance on a scratch copy and blends it onto
// base. The caller owns the returned Mat.
func drawSkeleton(base gocv.Mat, kps detection.Keypoints, palette Palette, threshold float32) gocv.Mat {
	scratch := base.Clone()
	defer scratch.Close()

	midShoulder := kps.MidShoulder()
	midHip := kps.MidHip()
	nose := kps[detection.JointNose]

	if midShoulder.Score > threshold && nose.Score > threshold {
		gocv.Line(&scratch, pt(midShoulder), pt(nose), palette.At(len(detection.Bones)), boneThickness)
	}
	if midShoulder.Score > threshold && midHip.Score > threshold {
		gocv.Line(&scratch, pt(midShoulder), pt(midHip), palette.At(len(detection.Bones)+1), boneThickness)
	}

	for b, bone := range detection.Bones {
		p1 := kps[bone[0]]
		p2 := kps[bone[1]]
		if p1.Score > threshold && p2.Score > threshold {
			gocv.Line(&scratch, pt(p1), pt(p2), palette.At(b), boneThickness)
		}
		if p1.Score > threshold {
			gocv.Circle(&scratch, pt(p1), keypointRadius, palette.At(b), -1)
		}
		if p2.Score > threshold {
			gocv.Circle(&scratch, pt(p2), keypointRadius, palette.At(b), -1)
		}
	}

	out := gocv.NewMat()
	gocv.AddWeighted(base, 1.0-keypointAlpha, scratch, keypointAlpha, 0, &out)
	return out
}

func pt(k detection.Keypoint) image.Point {
	return image.Pt(int(k.X), int(k.Y))
}
