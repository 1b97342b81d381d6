package cache

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTagIndex(t *testing.T) {
	Convey("Given an empty tag index", t, func() {
		idx := newTagIndex()

		Convey("linking keys registers both directions", func() {
			idx.link("a", []string{"x", "y"})
			idx.link("b", []string{"x"})

			So(idx.members("x"), ShouldResemble, []string{"a", "b"})
			So(idx.members("y"), ShouldResemble, []string{"a"})
			So(idx.tagsOf("a"), ShouldResemble, []string{"x", "y"})
			So(idx.tagCount(), ShouldEqual, 2)
			So(idx.keyCount(), ShouldEqual, 2)

			Convey("unlinking a key prunes the tags it leaves empty", func() {
				idx.unlink("a")

				So(idx.has("a"), ShouldBeFalse)
				So(idx.hasTag("y"), ShouldBeFalse)
				So(idx.members("x"), ShouldResemble, []string{"b"})
			})

			Convey("unlinking an unknown key changes nothing", func() {
				idx.unlink("missing")

				So(idx.keyCount(), ShouldEqual, 2)
				So(idx.tagCount(), ShouldEqual, 2)
			})

			Convey("reset forgets everything", func() {
				idx.reset()

				So(idx.keyCount(), ShouldEqual, 0)
				So(idx.tagCount(), ShouldEqual, 0)
				So(idx.members("x"), ShouldBeNil)
			})
		})

		Convey("a key without tags is still tracked", func() {
			idx.link("plain", nil)

			So(idx.has("plain"), ShouldBeTrue)
			So(idx.tagsOf("plain"), ShouldBeNil)
			So(idx.tagCount(), ShouldEqual, 0)
		})

		Convey("members returns a copy", func() {
			idx.link("a", []string{"x"})
			members := idx.members("x")
			idx.unlink("a")

			So(members, ShouldResemble, []string{"a"})
		})
	})
}

func TestNormalizeTags(t *testing.T) {
	Convey("normalizeTags", t, func() {
		Convey("sorts and drops duplicates", func() {
			tags, err := normalizeTags([]string{"b", "a", "b"})
			So(err, ShouldBeNil)
			So(tags, ShouldResemble, []string{"a", "b"})
		})

		Convey("keeps no tags as nil", func() {
			tags, err := normalizeTags(nil)
			So(err, ShouldBeNil)
			So(tags, ShouldBeNil)
		})

		Convey("rejects an empty tag", func() {
			_, err := normalizeTags([]string{"a", ""})
			So(err, ShouldEqual, ErrEmptyTag)
		})

		Convey("does not alias the input", func() {
			in := []string{"a"}
			tags, _ := normalizeTags(in)
			in[0] = "z"
			So(tags, ShouldResemble, []string{"a"})
		})
	})
}
