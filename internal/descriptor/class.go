package descriptor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	classMagic = 0xCAFEBABE
	accModule  = 0x8000
	accOpen    = 0x0020

	tagUtf8        = 1
	tagInteger     = 3
	tagFloat       = 4
	tagLong        = 5
	tagDouble      = 6
	tagClass       = 7
	tagString      = 8
	tagFieldref    = 9
	tagMethodref   = 10
	tagIfaceMethod = 11
	tagNameAndType = 12
	tagHandle      = 15
	tagMethodType  = 16
	tagDynamic     = 17
	tagInvokeDyn   = 18
	tagModule      = 19
	tagPackage     = 20
)

type poolEntry struct {
	tag  byte
	utf8 string
	ref  uint16
}

type classReader struct {
	r   *bytes.Reader
	err error
}

func (c *classReader) u1() byte {
	var v byte
	c.read(&v)
	return v
}

func (c *classReader) u2() uint16 {
	var v uint16
	c.read(&v)
	return v
}

func (c *classReader) u4() uint32 {
	var v uint32
	c.read(&v)
	return v
}

func (c *classReader) read(v any) {
	if c.err == nil {
		c.err = binary.Read(c.r, binary.BigEndian, v)
	}
}

func (c *classReader) skip(n int64) {
	if c.err == nil {
		_, c.err = c.r.Seek(n, io.SeekCurrent)
	}
}

// ParseClass parses a compiled module descriptor. Only the Module attribute
// is interpreted; everything else is skipped.
func ParseClass(data []byte) (Module, error) {
	c := &classReader{r: bytes.NewReader(data)}
	if c.u4() != classMagic {
		if c.err != nil {
			return Module{}, fmt.Errorf("reading class header: %w", c.err)
		}
		return Module{}, fmt.Errorf("not a class file")
	}
	c.skip(4) // minor, major

	pool := make([]poolEntry, c.u2())
	for i := 1; i < len(pool) && c.err == nil; i++ {
		e := poolEntry{tag: c.u1()}
		switch e.tag {
		case tagUtf8:
			buf := make([]byte, c.u2())
			c.read(buf)
			e.utf8 = string(buf)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			e.ref = c.u2()
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagIfaceMethod, tagNameAndType, tagDynamic, tagInvokeDyn:
			c.skip(4)
		case tagLong, tagDouble:
			if i+1 >= len(pool) {
				return Module{}, fmt.Errorf("constant pool entry %d takes two slots past the end of the pool", i)
			}
			c.skip(8)
			pool[i] = e
			i++
			continue
		case tagHandle:
			c.skip(3)
		default:
			return Module{}, fmt.Errorf("unknown constant pool tag %d at index %d", e.tag, i)
		}
		pool[i] = e
	}

	access := c.u2()
	c.skip(4) // this_class, super_class
	c.skip(int64(c.u2()) * 2)
	if c.u2() != 0 || c.u2() != 0 {
		return Module{}, fmt.Errorf("module descriptor declares fields or methods")
	}
	if c.err != nil {
		return Module{}, fmt.Errorf("reading class file: %w", c.err)
	}
	if access&accModule == 0 {
		return Module{}, ErrNoModule
	}

	utf8 := func(i uint16) string {
		if int(i) < len(pool) {
			return pool[i].utf8
		}
		return ""
	}
	moduleName := func(i uint16) string {
		if int(i) < len(pool) && pool[i].tag == tagModule {
			return utf8(pool[i].ref)
		}
		return ""
	}

	for n := c.u2(); n > 0 && c.err == nil; n-- {
		name, length := utf8(c.u2()), c.u4()
		if name != "Module" {
			c.skip(int64(length))
			continue
		}
		mod := Module{Name: moduleName(c.u2())}
		mod.Open = c.u2()&accOpen != 0
		c.skip(2) // version
		for r := c.u2(); r > 0 && c.err == nil; r-- {
			mod.Requires = append(mod.Requires, moduleName(c.u2()))
			c.skip(4) // flags, version
		}
		if c.err != nil {
			return Module{}, fmt.Errorf("reading Module attribute: %w", c.err)
		}
		if mod.Name == "" {
			return Module{}, fmt.Errorf("module attribute names no module")
		}
		mod.Requires = normalize(mod.Requires)
		return mod, nil
	}
	if c.err != nil {
		return Module{}, fmt.Errorf("reading class attributes: %w", c.err)
	}
	return Module{}, ErrNoModule
}
