package scene

import "testing"

func image(id, query string, typ ImageType) ImageElement {
	return ImageElement{ID: id, Query: query, Type: typ, InitialPosition: PositionCenter, Transform: DefaultTransform()}
}

func sceneWith(id string, images ...ImageElement) Scene {
	return Scene{ID: id, TextSection: id, Images: images}
}

func withURL(s Scene, imageID, url string) Scene {
	out := s.clone()
	out.Images[out.imageByID(imageID)].URL = url
	return out
}

func withTransform(s Scene, imageID string, tr Transform) Scene {
	out := s.clone()
	out.Images[out.imageByID(imageID)].Transform = tr
	return out
}

func TestApplyEditPropagatesURLInBothDirections(t *testing.T) {
	scenes := []Scene{
		sceneWith("a", image("a1", "dog", ImageSearch)),
		sceneWith("b", image("b1", "dog", ImageSearch)),
		sceneWith("c", image("c1", "dog", ImageSearch)),
	}

	got := ApplyEdit(scenes, withURL(scenes[2], "c1", "http://x"))
	for i, s := range got {
		if s.Images[0].URL != "http://x" {
			t.Fatalf("scene %d: expected propagated url, got %q", i, s.Images[0].URL)
		}
	}

	got = ApplyEdit(scenes, withURL(scenes[0], "a1", "http://y"))
	for i, s := range got {
		if s.Images[0].URL != "http://y" {
			t.Fatalf("scene %d: expected propagated url, got %q", i, s.Images[0].URL)
		}
	}
}

func TestApplyEditURLRequiresSameKey(t *testing.T) {
	scenes := []Scene{
		sceneWith("a", image("a1", "dog", ImageSearch)),
		sceneWith("b", image("b1", "dog", ImageAIGenerated), image("b2", "cat", ImageSearch)),
	}
	got := ApplyEdit(scenes, withURL(scenes[0], "a1", "http://x"))
	if got[1].Images[0].URL != "" || got[1].Images[1].URL != "" {
		t.Fatalf("url leaked to a different key: %+v", got[1].Images)
	}
}

func TestApplyEditClearedURLDoesNotPropagate(t *testing.T) {
	scenes := []Scene{
		withURL(sceneWith("a", image("a1", "dog", ImageSearch)), "a1", "http://old"),
		withURL(sceneWith("b", image("b1", "dog", ImageSearch)), "b1", "http://old"),
	}
	got := ApplyEdit(scenes, withURL(scenes[0], "a1", ""))
	if got[0].Images[0].URL != "" {
		t.Fatal("edited scene lost its literal edit")
	}
	if got[1].Images[0].URL != "http://old" {
		t.Fatalf("empty url should not propagate, got %q", got[1].Images[0].URL)
	}
}

func TestApplyEditTransformChainBreak(t *testing.T) {
	manual := Transform{X: 10, Y: 10, Scale: 2}
	s1 := sceneWith("s1", image("i1", "logo", ImageSearch))
	s2 := sceneWith("s2", image("i2", "logo", ImageSearch))
	s2.Images[0].CopyFromPrevious = true
	s3 := sceneWith("s3", image("i3", "logo", ImageSearch))
	s3.Images[0].Transform = manual
	s4 := sceneWith("s4", image("i4", "logo", ImageSearch))
	s4.Images[0].CopyFromPrevious = true
	scenes := []Scene{s1, s2, s3, s4}

	moved := Transform{X: 200, Y: -40, Scale: 1.5, Rotation: 15, FlipX: true}
	got := ApplyEdit(scenes, withTransform(s1, "i1", moved))

	if got[0].Images[0].Transform != moved {
		t.Fatalf("edited scene transform = %+v", got[0].Images[0].Transform)
	}
	if got[1].Images[0].Transform != moved {
		t.Fatalf("expected s2 to inherit transform, got %+v", got[1].Images[0].Transform)
	}
	if got[2].Images[0].Transform != manual {
		t.Fatalf("expected s3 to keep manual transform, got %+v", got[2].Images[0].Transform)
	}
	if got[3].Images[0].Transform != DefaultTransform() {
		t.Fatalf("expected s4 untouched past the chain break, got %+v", got[3].Images[0].Transform)
	}
}

func TestApplyEditTransformSkipsScenesWithoutKey(t *testing.T) {
	moved := Transform{X: 5, Scale: 1}
	s1 := sceneWith("s1", image("i1", "logo", ImageSearch))
	s2 := sceneWith("s2", image("i2", "other", ImageSearch))
	s3 := sceneWith("s3")
	s4 := sceneWith("s4", image("i4", "logo", ImageSearch))
	s4.Images[0].CopyFromPrevious = true
	got := ApplyEdit([]Scene{s1, s2, s3, s4}, withTransform(s1, "i1", moved))
	if got[3].Images[0].Transform != moved {
		t.Fatalf("expected chain to continue past scenes without the key, got %+v", got[3].Images[0].Transform)
	}
	if got[1].Images[0].Transform != DefaultTransform() {
		t.Fatal("unrelated image was modified")
	}
}

func TestApplyEditTransformIsForwardOnly(t *testing.T) {
	moved := Transform{Y: 30, Scale: 1}
	s1 := sceneWith("s1", image("i1", "logo", ImageSearch))
	s1.Images[0].CopyFromPrevious = true
	s2 := sceneWith("s2", image("i2", "logo", ImageSearch))
	got := ApplyEdit([]Scene{s1, s2}, withTransform(s2, "i2", moved))
	if got[0].Images[0].Transform != DefaultTransform() {
		t.Fatalf("transform propagated backwards: %+v", got[0].Images[0].Transform)
	}
}

func TestApplyEditUnknownSceneIsNoop(t *testing.T) {
	scenes := []Scene{sceneWith("a", image("a1", "dog", ImageSearch))}
	ghost := withURL(scenes[0], "a1", "http://x")
	ghost.ID = "missing"
	got := ApplyEdit(scenes, ghost)
	if &got[0] != &scenes[0] || got[0].Images[0].URL != "" {
		t.Fatal("expected input to be returned unchanged")
	}
}

func TestApplyEditDoesNotMutateInput(t *testing.T) {
	s1 := sceneWith("s1", image("i1", "logo", ImageSearch))
	s2 := sceneWith("s2", image("i2", "logo", ImageSearch))
	s2.Images[0].CopyFromPrevious = true
	scenes := []Scene{s1, s2}

	edited := withURL(withTransform(s1, "i1", Transform{X: 1, Scale: 1}), "i1", "http://x")
	got := ApplyEdit(scenes, edited)

	if scenes[1].Images[0].URL != "" || scenes[1].Images[0].Transform != DefaultTransform() {
		t.Fatalf("input scene was mutated: %+v", scenes[1].Images[0])
	}
	if got[1].Images[0].URL != "http://x" || got[1].Images[0].Transform.X != 1 {
		t.Fatalf("expected both url and transform to propagate, got %+v", got[1].Images[0])
	}
}

func TestApplyEditKeepsLiteralEditOfSameScene(t *testing.T) {
	s1 := sceneWith("s1", image("i1", "dog", ImageSearch), image("i2", "dog", ImageSearch))
	s2 := sceneWith("s2", image("i3", "dog", ImageSearch))
	got := ApplyEdit([]Scene{s1, s2}, withURL(s1, "i1", "http://x"))
	if got[0].Images[0].URL != "http://x" {
		t.Fatal("edited image lost its url")
	}
	if got[0].Images[1].URL != "" {
		t.Fatalf("propagation rewrote the edited scene: %q", got[0].Images[1].URL)
	}
	if got[1].Images[0].URL != "http://x" {
		t.Fatal("expected other scene to receive url")
	}
}

func TestApplyEditNewImageWithoutBaselineDoesNotPropagate(t *testing.T) {
	s1 := sceneWith("s1")
	s2 := sceneWith("s2", image("i2", "dog", ImageSearch))
	edited := s1.clone()
	added := image("new", "dog", ImageSearch)
	added.URL = "http://x"
	edited.Images = append(edited.Images, added)
	got := ApplyEdit([]Scene{s1, s2}, edited)
	if len(got[0].Images) != 1 {
		t.Fatal("edited scene should carry the added image")
	}
	if got[1].Images[0].URL != "" {
		t.Fatalf("image without a baseline should not propagate, got %q", got[1].Images[0].URL)
	}
}
