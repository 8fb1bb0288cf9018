package exporter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	v1 "go.opentelemetry.io/proto/otlp/common/v1"
	profilespb "go.opentelemetry.io/proto/otlp/profiles/v1development"
	resourceV1 "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/protobuf/proto"

	"github.com/hotpath-tools/perfanno/internal/report"
)

type NowFunc func() uint64 // produces unix nsec

// BuildOTLPProfile converts one daemon's symbolized lines into an OTLP
// profiles document: one sample per annotated line, its stack built from the
// resolved inline chain (innermost first), with the usual string/function/
// location/stack dictionary tables. Unsymbolized lines contribute a single
// "??" frame so their samples are not lost.
func BuildOTLPProfile(mod *report.Module, daemon string, now NowFunc) *profilespb.ProfilesData {
	nowNsec := now()
	stringTable := []string{""}
	mappingTable := []*profilespb.Mapping{{}}
	locationTable := []*profilespb.Location{{}}
	functionTable := []*profilespb.Function{{}}
	stackTable := []*profilespb.Stack{{}}

	defaultMappingIdx := 0
	var profileSamples []*profilespb.Sample

	sampleType := &profilespb.ValueType{
		TypeStrindex: strIndex(&stringTable, "samples"),
		UnitStrindex: strIndex(&stringTable, "count"),
	}

	buildStack := func(line *report.Line) int32 {
		frames := line.Frames
		if len(frames) == 0 {
			frames = []report.Frame{{Funcname: "??", Location: "?:?"}}
		}
		addr, _ := strconv.ParseUint(line.Address, 16, 64)
		locIndices := make([]int32, 0, len(frames))
		for _, frame := range frames {
			file, lineNo := splitLocation(frame.Location)
			fn := &profilespb.Function{
				NameStrindex:       strIndex(&stringTable, frame.Funcname),
				SystemNameStrindex: strIndex(&stringTable, frame.Funcname),
				FilenameStrindex:   strIndex(&stringTable, file),
			}
			functionTable = append(functionTable, fn)
			fnIdx := int32(len(functionTable) - 1)

			loc := &profilespb.Location{
				Address:      addr,
				MappingIndex: int32(defaultMappingIdx),
				Lines: []*profilespb.Line{
					{
						FunctionIndex: fnIdx,
						Line:          lineNo,
					},
				},
			}
			locationTable = append(locationTable, loc)
			locIndices = append(locIndices, int32(len(locationTable)-1))
		}

		stackTable = append(stackTable, &profilespb.Stack{LocationIndices: locIndices})
		return int32(len(stackTable) - 1)
	}

	for _, fn := range mod.Funcs {
		for _, line := range fn.Lines {
			pbSample := &profilespb.Sample{
				StackIndex:       buildStack(line),
				Values:           []int64{int64(line.Samples)},
				AttributeIndices: []int32{},
				LinkIndex:        0,
			}
			profileSamples = append(profileSamples, pbSample)
		}
	}

	profile := &profilespb.Profile{
		TimeUnixNano: nowNsec,
		DurationNano: uint64(0),
		SampleType:   sampleType,
		Samples:      profileSamples,
	}

	resource := &resourceV1.Resource{}
	resourceProfiles := &profilespb.ResourceProfiles{
		Resource: resource,
		ScopeProfiles: []*profilespb.ScopeProfiles{
			{
				Scope: &v1.InstrumentationScope{
					Name:    "perfanno/" + daemon,
					Version: "v1",
				},
				Profiles: []*profilespb.Profile{profile},
			},
		},
	}

	dictionary := &profilespb.ProfilesDictionary{
		MappingTable:  mappingTable,
		LocationTable: locationTable,
		FunctionTable: functionTable,
		StackTable:    stackTable,
		StringTable:   stringTable,
	}

	return &profilespb.ProfilesData{
		ResourceProfiles: []*profilespb.ResourceProfiles{resourceProfiles},
		Dictionary:       dictionary,
	}
}

// splitLocation takes apart a "<basename>:<line>" location; "?:?" and other
// unknown shapes come back as an empty file and line 0.
func splitLocation(location string) (string, int64) {
	colon := strings.LastIndex(location, ":")
	if colon <= 0 {
		return "", 0
	}
	file := location[:colon]
	if file == "?" {
		return "", 0
	}
	num, err := strconv.ParseInt(location[colon+1:], 10, 64)
	if err != nil {
		num = 0
	}
	return file, num
}

func strIndex(table *[]string, s string) int32 {
	for i, v := range *table {
		if v == s {
			return int32(i)
		}
	}
	*table = append(*table, s)
	return int32(len(*table) - 1)
}

// WriteOTLPProfile serializes the document as binary protobuf.
func WriteOTLPProfile(w io.Writer, data *profilespb.ProfilesData) error {
	raw, err := proto.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal OTLP profile: %w", err)
	}
	_, err = w.Write(raw)
	return err
}
