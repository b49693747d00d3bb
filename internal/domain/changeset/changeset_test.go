package changeset

import (
	"reflect"
	"strings"
	"testing"
)

const sampleDiff = `diff --git a/pandas/core/frame.py b/pandas/core/frame.py
index 3b1aec4..8c0f2d1 100644
--- a/pandas/core/frame.py
+++ b/pandas/core/frame.py
@@ -1,2 +1,5 @@
 import os
+class FrameHelper:
+    pass
+def frame_util(x):
 import sys
diff --git a/pandas/tests/frame/test_helper.py b/pandas/tests/frame/test_helper.py
new file mode 100644
index 0000000..59f1b1f
--- /dev/null
+++ b/pandas/tests/frame/test_helper.py
@@ -0,0 +1,3 @@
+def test_frame_helper():
+    h = FrameHelper()
+    assert h is not None
`

const deletionDiff = `diff --git a/pandas/util/old.py b/pandas/util/old.py
deleted file mode 100644
index 59f1b1f..0000000
--- a/pandas/util/old.py
+++ /dev/null
@@ -1,2 +0,0 @@
-def old_util():
-    return None
`

const manySymbolsDiff = `diff --git a/pandas/io/util.py b/pandas/io/util.py
index 1111111..2222222 100644
--- a/pandas/io/util.py
+++ b/pandas/io/util.py
@@ -1,1 +1,10 @@
 import os
+def f_one():
+def f_two():
+def f_three():
+def f_four():
+def f_five():
+def f_six():
+class Alpha:
+class Beta:
+def f_seven():
`

func mustParse(t *testing.T, raw string) *Changeset {
	t.Helper()
	cs, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return cs
}

func TestParse_Files(t *testing.T) {
	cs := mustParse(t, sampleDiff)

	want := []File{
		{Path: "pandas/core/frame.py", IsTest: false},
		{Path: "pandas/tests/frame/test_helper.py", IsTest: true},
	}
	if !reflect.DeepEqual(cs.Files, want) {
		t.Errorf("expected files %+v, got %+v", want, cs.Files)
	}
}

func TestParse_Empty(t *testing.T) {
	cs := mustParse(t, "")
	if len(cs.Files) != 0 {
		t.Errorf("expected no files from empty patch, got %d", len(cs.Files))
	}
}

func TestParse_DeletedFile(t *testing.T) {
	cs := mustParse(t, deletionDiff)

	if len(cs.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(cs.Files))
	}
	if cs.Files[0].Path != "pandas/util/old.py" {
		t.Errorf("expected path resolved from original name, got %q", cs.Files[0].Path)
	}
}

func TestChangeset_TestFiles(t *testing.T) {
	cs := mustParse(t, sampleDiff)

	want := []string{"pandas/tests/frame/test_helper.py"}
	if !reflect.DeepEqual(cs.TestFiles(), want) {
		t.Errorf("expected test files %v, got %v", want, cs.TestFiles())
	}
}

func TestChangeset_TestPatch(t *testing.T) {
	cs := mustParse(t, sampleDiff)

	testPatch, err := cs.TestPatch()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(testPatch, "pandas/tests/frame/test_helper.py") {
		t.Error("expected test sub-diff to contain the test file")
	}
	if strings.Contains(testPatch, "pandas/core/frame.py") {
		t.Error("expected test sub-diff to exclude source files")
	}

	reparsed := mustParse(t, testPatch)
	if len(reparsed.Files) != 1 || !reparsed.Files[0].IsTest {
		t.Errorf("expected sub-diff to reparse to one test file, got %+v", reparsed.Files)
	}
}

func TestChangeset_TestPatchEmpty(t *testing.T) {
	cs := mustParse(t, deletionDiff)

	testPatch, err := cs.TestPatch()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if testPatch != "" {
		t.Errorf("expected empty test sub-diff, got %q", testPatch)
	}
}

func TestChangeset_Provides(t *testing.T) {
	cs := mustParse(t, sampleDiff)

	want := []string{
		"FrameHelper class",
		"frame_util function",
		"test_frame_helper function",
	}
	if got := cs.Provides(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestChangeset_ProvidesClassesFirstFuncsCapped(t *testing.T) {
	cs := mustParse(t, manySymbolsDiff)

	got := cs.Provides()
	want := []string{
		"Alpha class",
		"Beta class",
		"f_one function",
		"f_two function",
		"f_three function",
		"f_four function",
		"f_five function",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected classes first and functions capped at five, got %v", got)
	}
}

func TestChangeset_ProvidesIndentedDefinitionsIgnored(t *testing.T) {
	cs := mustParse(t, sampleDiff)

	for _, s := range cs.Provides() {
		if strings.HasPrefix(s, "h ") {
			t.Errorf("indented statement misread as a definition: %q", s)
		}
	}
}
